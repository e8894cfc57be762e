package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/internal/domain/types"
	"github.com/okian/peerfeedback/pkg/logger"
)

// loginAll logs every credential in concurrently and splits out the admin.
func loginAll(ctx context.Context, c *httpClient, creds []Credential) (employees []model.User, admin *model.User, err error) {
	users := make([]model.User, len(creds))
	g, gctx := errgroup.WithContext(ctx)
	for i, cred := range creds {
		g.Go(func() error {
			u, err := c.login(gctx, cred)
			if err != nil {
				return err
			}
			users[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i := range users {
		if users[i].IsAdmin() {
			if admin == nil {
				admin = &users[i]
			}
			continue
		}
		employees = append(employees, users[i])
	}
	if admin == nil {
		return nil, nil, fmt.Errorf("no administrator among %d users", len(users))
	}
	return employees, admin, nil
}

// buildPlan fetches each employee's roster and draws a random rating for every
// colleague not yet evaluated.
func buildPlan(ctx context.Context, c *httpClient, employees []model.User, rng *rand.Rand) ([]Submission, error) {
	rosters := make([][]types.RosterEntry, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	for i := range employees {
		g.Go(func() error {
			var resp struct {
				Targets []types.RosterEntry `json:"targets"`
			}
			if _, err := c.do(gctx, http.MethodGet, "/roster", &employees[i], nil, &resp); err != nil {
				return err
			}
			rosters[i] = resp.Targets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var plan []Submission
	for i, roster := range rosters {
		for _, t := range roster {
			if t.Evaluated {
				continue
			}
			plan = append(plan, Submission{
				EvaluatorID: employees[i].ID,
				TargetID:    t.ID,
				Ratings:     randomRating(rng).Map(),
			})
		}
	}
	logger.Get().Info(ctx, "plan built", logger.Int("evaluators", len(employees)), logger.Int("submissions", len(plan)))
	return plan, nil
}

func randomRating(rng *rand.Rand) rating.Rating {
	var s [rating.Count]int
	for i := range s {
		s[i] = rating.MinScore + rng.IntN(rating.MaxScore-rating.MinScore+1)
	}
	return rating.FromScores(s)
}
