package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	model "github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func TestValidateIdentity(t *testing.T) {
	convey.Convey("Given identity strings", t, func() {
		convey.Convey("When they are well formed", func() {
			for _, id := range []string{"002", "user-123", "3f1c0e9a-7a5e-4d2b-9a55-2d8a0c1e4b77"} {
				convey.So(model.ValidateIdentity(id), convey.ShouldBeNil)
			}
		})

		convey.Convey("When they are malformed", func() {
			bad := []string{
				"",
				" 002",
				"002 ",
				"00 2",
				"a\tb",
				"a\x00b",
				strings.Repeat("x", 129),
			}
			for _, id := range bad {
				err := model.ValidateIdentity(id)
				convey.So(errors.Is(err, model.ErrInvalidIdentity), convey.ShouldBeTrue)
			}
		})
	})
}

func TestAssessment(t *testing.T) {
	convey.Convey("Given an Assessment", t, func() {
		a := model.Assessment{
			ID:          "a-1",
			EvaluatorID: "002",
			TargetID:    "003",
			Rating:      rating.Uniform(4),
			CreatedAt:   time.Now(),
		}

		convey.Convey("When it is well formed", func() {
			convey.Convey("Then it validates", func() {
				convey.So(a.Validate(), convey.ShouldBeNil)
			})

			convey.Convey("And its pair identifies evaluator and target", func() {
				convey.So(a.Pair(), convey.ShouldResemble, model.Pair{EvaluatorID: "002", TargetID: "003"})
			})
		})

		convey.Convey("When the rating is out of range", func() {
			a.Rating.Competence = 6
			err := a.Validate()

			convey.Convey("Then it is an invalid assessment caused by an invalid rating", func() {
				convey.So(errors.Is(err, model.ErrInvalidAssessment), convey.ShouldBeTrue)
				convey.So(errors.Is(err, rating.ErrInvalidRating), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the evaluator identity is malformed", func() {
			a.EvaluatorID = ""
			err := a.Validate()
			convey.So(errors.Is(err, model.ErrInvalidAssessment), convey.ShouldBeTrue)
			convey.So(errors.Is(err, model.ErrInvalidIdentity), convey.ShouldBeTrue)
		})

		convey.Convey("When the evaluator rates themselves", func() {
			a.TargetID = a.EvaluatorID
			convey.So(errors.Is(a.Validate(), model.ErrInvalidAssessment), convey.ShouldBeTrue)
		})
	})
}

func TestPairSet(t *testing.T) {
	convey.Convey("Given a pair set built for one evaluator", t, func() {
		set := model.NewPairSet("002", []string{"003", "004", "003"})

		convey.Convey("Then duplicates collapse", func() {
			convey.So(len(set), convey.ShouldEqual, 2)
		})

		convey.Convey("Then membership is per evaluator", func() {
			convey.So(set.Has(model.Pair{EvaluatorID: "002", TargetID: "003"}), convey.ShouldBeTrue)
			convey.So(set.Has(model.Pair{EvaluatorID: "005", TargetID: "003"}), convey.ShouldBeFalse)
		})
	})
}

func TestRole(t *testing.T) {
	convey.Convey("Given roles", t, func() {
		convey.So(model.RoleAdmin.Valid(), convey.ShouldBeTrue)
		convey.So(model.RoleUser.Valid(), convey.ShouldBeTrue)
		convey.So(model.Role("admin").Valid(), convey.ShouldBeFalse)
		convey.So(model.User{Role: model.RoleAdmin}.IsAdmin(), convey.ShouldBeTrue)
		convey.So(model.User{Role: model.RoleUser}.IsAdmin(), convey.ShouldBeFalse)
	})
}
