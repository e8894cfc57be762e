// Package sheets implements the gateway on top of a spreadsheet web app that
// answers ?action=getUsers|authenticate|saveAssessment|getAssessmentResults
// with JSON.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/okian/peerfeedback/internal/adapters/repository"
	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/progress"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/pkg/logger"
	"github.com/okian/peerfeedback/pkg/metrics"
)

const (
	backend = "sheets"

	actionGetUsers       = "getUsers"
	actionAuthenticate   = "authenticate"
	actionSaveAssessment = "saveAssessment"
	actionGetResults     = "getAssessmentResults"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrRemote marks a failure reported by, or talking to, the web app.
var ErrRemote = errors.New("sheets: remote call failed")

// Client is a repository.Store backed by the spreadsheet web app. The web app
// has no uniqueness constraint, so the client checks for an existing pair
// before saving and serializes its own saves. Only the reject policy is
// supported.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	log      logger.Logger
	now      func() time.Time

	saveMu sync.Mutex
}

var _ repository.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the web app at rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "sheets: parse url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("sheets: url %q must be absolute http(s)", rawURL)
	}
	c := &Client{
		endpoint: u,
		http:     &http.Client{Timeout: defaultTimeout},
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// call performs one action and returns the parsed body.
func (c *Client) call(ctx context.Context, action string, payload any) (gjson.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(backend, action, float64(time.Since(start).Microseconds())/1000)
	}()

	u := *c.endpoint
	q := u.Query()
	q.Set("action", action)
	u.RawQuery = q.Encode()

	method := http.MethodGet
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, errors.Wrapf(err, "sheets: %s: encode", action)
		}
		method = http.MethodPost
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "sheets: %s: build request", action)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "sheets_transport")
		return gjson.Result{}, errors.Wrapf(ErrRemote, "%s: %v", action, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, errors.Wrapf(ErrRemote, "%s: read body: %v", action, err)
	}

	// authenticate answers 401 with a JSON body; let the caller read it.
	if res.StatusCode != http.StatusOK && !(action == actionAuthenticate && res.StatusCode == http.StatusUnauthorized) {
		metrics.RecordErrorByComponent("repository", "sheets_status")
		return gjson.Result{}, errors.Wrapf(ErrRemote, "%s: status %d", action, res.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, errors.Wrapf(ErrRemote, "%s: response is not JSON", action)
	}
	return gjson.ParseBytes(raw), nil
}

func parseUser(r gjson.Result) model.User {
	return model.User{
		ID:       r.Get("id").String(),
		Username: r.Get("username").String(),
		Name:     r.Get("name").String(),
		Role:     model.Role(r.Get("role").String()),
		Position: r.Get("position").String(),
	}
}

// ListUsers fetches the user directory.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	res, err := c.call(ctx, actionGetUsers, nil)
	if err != nil {
		return nil, err
	}
	rows := res.Get("users").Array()
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		u := parseUser(r)
		if err := model.ValidateIdentity(u.ID); err != nil {
			c.log.Warn(ctx, "skipping user row", logger.String("backend", backend), logger.Error(err))
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// GetUser finds id in the user directory.
func (c *Client) GetUser(ctx context.Context, id string) (model.User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, errors.Wrapf(repository.ErrNotFound, "user %q", id)
}

// ListEligibleTargets returns non-admin users other than evaluatorID.
func (c *Client) ListEligibleTargets(ctx context.Context, evaluatorID string) ([]string, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return progress.EligibleTargets(evaluatorID, users)
}

func parseAssessment(r gjson.Result) model.Assessment {
	a := model.Assessment{
		ID:          r.Get("id").String(),
		EvaluatorID: r.Get("evaluatorId").String(),
		TargetID:    r.Get("targetId").String(),
	}
	var scores [rating.Count]int
	for _, d := range rating.All() {
		scores[d] = int(r.Get(d.Alias()).Int())
	}
	a.Rating = rating.FromScores(scores)
	if ts, err := time.Parse(time.RFC3339, r.Get("timestamp").String()); err == nil {
		a.CreatedAt = ts
	}
	if a.ID == "" {
		a.ID = a.EvaluatorID + ":" + a.TargetID
	}
	return a
}

// ListAllAssessments fetches every result row. Rows are returned as stored;
// invalid ratings surface later as aggregation errors.
func (c *Client) ListAllAssessments(ctx context.Context) ([]model.Assessment, error) {
	res, err := c.call(ctx, actionGetResults, nil)
	if err != nil {
		return nil, err
	}
	rows := res.Get("results").Array()
	out := make([]model.Assessment, 0, len(rows))
	for _, r := range rows {
		out = append(out, parseAssessment(r))
	}
	return out, nil
}

// ListAssessmentsFor returns the rows addressed to targetID.
func (c *Client) ListAssessmentsFor(ctx context.Context, targetID string) ([]model.Assessment, error) {
	all, err := c.ListAllAssessments(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Assessment
	for _, a := range all {
		if a.TargetID == targetID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListCompletedPairs returns the targets evaluatorID has rated.
func (c *Client) ListCompletedPairs(ctx context.Context, evaluatorID string) ([]string, error) {
	all, err := c.ListAllAssessments(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range all {
		if a.EvaluatorID == evaluatorID {
			out = append(out, a.TargetID)
		}
	}
	return out, nil
}

type savePayload struct {
	ID          string         `json:"id"`
	TargetID    string         `json:"targetId"`
	EvaluatorID string         `json:"evaluatorId"`
	Ratings     map[string]int `json:"ratings"`
	Timestamp   string         `json:"timestamp"`
}

// InsertAssessment checks for an existing pair, then saves a.
func (c *Client) InsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryInsertLatency(backend, float64(time.Since(start).Microseconds())/1000)
	}()

	if a.EvaluatorID == a.TargetID && a.EvaluatorID != "" {
		return model.Assessment{}, repository.ErrSelfAssessment
	}
	if err := a.Validate(); err != nil {
		return model.Assessment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = c.now().UTC()
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	done, err := c.ListCompletedPairs(ctx, a.EvaluatorID)
	if err != nil {
		return model.Assessment{}, err
	}
	for _, t := range done {
		if t == a.TargetID {
			return model.Assessment{}, errors.Wrapf(repository.ErrDuplicateAssessment, "%s -> %s", a.EvaluatorID, a.TargetID)
		}
	}

	ratings := make(map[string]int, rating.Count)
	for _, d := range rating.All() {
		ratings[d.Alias()] = a.Rating.Score(d)
	}
	res, err := c.call(ctx, actionSaveAssessment, savePayload{
		ID:          a.ID,
		TargetID:    a.TargetID,
		EvaluatorID: a.EvaluatorID,
		Ratings:     ratings,
		Timestamp:   a.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return model.Assessment{}, err
	}
	if !res.Get("success").Bool() {
		return model.Assessment{}, errors.Wrapf(ErrRemote, "%s: %s", actionSaveAssessment, res.Get("message").String())
	}
	return a, nil
}

// Authenticate asks the web app to check the credentials.
func (c *Client) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	res, err := c.call(ctx, actionAuthenticate, map[string]string{"username": username, "password": password})
	if err != nil {
		return model.User{}, err
	}
	if !res.Get("success").Bool() {
		return model.User{}, repository.ErrInvalidCredentials
	}
	u := parseUser(res.Get("user"))
	if err := model.ValidateIdentity(u.ID); err != nil {
		return model.User{}, errors.Wrapf(ErrRemote, "%s: %v", actionAuthenticate, err)
	}
	return u, nil
}

// Count fetches both lists; failures are logged and reported as zero.
func (c *Client) Count(ctx context.Context) (users, assessments int) {
	us, err := c.ListUsers(ctx)
	if err != nil {
		c.log.Warn(ctx, "count users failed", logger.String("backend", backend), logger.Error(err))
		return 0, 0
	}
	as, err := c.ListAllAssessments(ctx)
	if err != nil {
		c.log.Warn(ctx, "count assessments failed", logger.String("backend", backend), logger.Error(err))
		return len(us), 0
	}
	return len(us), len(as)
}
