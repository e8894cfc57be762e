package progress_test

import (
	"errors"
	"testing"

	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/progress"
	"github.com/okian/peerfeedback/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

var users = []model.User{
	{ID: "001", Name: "Admin", Role: model.RoleAdmin},
	{ID: "002", Name: "Budi Santoso", Role: model.RoleUser},
	{ID: "003", Name: "Siti Aminah", Role: model.RoleUser},
	{ID: "004", Name: "Ahmad Fauzi", Role: model.RoleUser},
	{ID: "005", Name: "Rina Kusuma", Role: model.RoleUser},
}

func TestComputeProgress(t *testing.T) {
	Convey("Given a roster of four targets", t, func() {
		roster := []string{"003", "004", "005", "006"}

		Convey("When one pair is completed", func() {
			done := model.NewPairSet("002", []string{"004"})
			s, err := progress.ComputeProgress("002", roster, done)

			Convey("Then a quarter is done", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, progress.Summary{Total: 4, Completed: 1, Remaining: 3, Percentage: 25})
			})
		})

		Convey("When every pair is completed", func() {
			done := model.NewPairSet("002", roster)
			s, err := progress.ComputeProgress("002", roster, done)
			So(err, ShouldBeNil)
			So(s.Percentage, ShouldEqual, 100)
			So(s.Remaining, ShouldEqual, 0)
		})

		Convey("When completed pairs belong to a different evaluator", func() {
			done := model.NewPairSet("009", roster)
			s, err := progress.ComputeProgress("002", roster, done)
			So(err, ShouldBeNil)
			So(s.Completed, ShouldEqual, 0)
		})

		Convey("When completed pairs reference targets no longer on the roster", func() {
			done := model.NewPairSet("002", []string{"003", "old-1", "old-2", "old-3", "old-4"})
			s, err := progress.ComputeProgress("002", roster, done)

			Convey("Then the extra pairs are ignored and remaining is not negative", func() {
				So(err, ShouldBeNil)
				So(s.Completed, ShouldEqual, 1)
				So(s.Remaining, ShouldEqual, 3)
			})
		})

		Convey("When called twice with identical inputs", func() {
			done := model.NewPairSet("002", []string{"003", "005"})
			first, err1 := progress.ComputeProgress("002", roster, done)
			second, err2 := progress.ComputeProgress("002", roster, done)

			Convey("Then the results are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, second)
			})
		})

		Convey("When the percentage is not a whole number", func() {
			s, err := progress.ComputeProgress("002", []string{"003", "004", "005"}, model.NewPairSet("002", []string{"003"}))
			So(err, ShouldBeNil)
			So(s.Percentage, ShouldAlmostEqual, 33.3333, 0.001)
		})

		Convey("When the roster repeats a target", func() {
			s, err := progress.ComputeProgress("002", []string{"003", "003"}, model.NewPairSet("002", []string{"003"}))
			So(err, ShouldBeNil)
			So(s.Total, ShouldEqual, 1)
			So(s.Completed, ShouldEqual, 1)
		})

		Convey("When the roster contains the evaluator", func() {
			s, err := progress.ComputeProgress("002", []string{"002", "003", "004"}, model.NewPairSet("002", []string{"002", "003"}))

			Convey("Then the evaluator is not counted as a target", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, progress.Summary{Total: 2, Completed: 1, Remaining: 1, Percentage: 50})
			})
		})
	})

	Convey("Given an empty roster", t, func() {
		s, err := progress.ComputeProgress("002", nil, nil)

		Convey("Then everything is zero and nothing divides by zero", func() {
			So(err, ShouldBeNil)
			So(s, ShouldResemble, progress.Summary{})
		})
	})

	Convey("Given malformed identities", t, func() {
		_, err := progress.ComputeProgress("", []string{"003"}, nil)
		So(errors.Is(err, model.ErrInvalidIdentity), ShouldBeTrue)

		_, err = progress.ComputeProgress("002", []string{"003", " "}, nil)
		So(errors.Is(err, model.ErrInvalidIdentity), ShouldBeTrue)
	})
}

func TestEligibleTargets(t *testing.T) {
	Convey("Given a user directory with an admin", t, func() {
		Convey("When listing targets for an employee", func() {
			ids, err := progress.EligibleTargets("002", users)

			Convey("Then admins and the evaluator are excluded", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"003", "004", "005"})
			})
		})

		Convey("When listing targets for the admin", func() {
			ids, err := progress.EligibleTargets("001", users)

			Convey("Then the roster is empty", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldNotBeNil)
				So(ids, ShouldBeEmpty)
			})
		})

		Convey("When the evaluator is not in the directory", func() {
			ids, err := progress.EligibleTargets("009", users)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"002", "003", "004", "005"})
		})

		Convey("When the directory repeats a user", func() {
			ids, err := progress.EligibleTargets("002", append(users, users[3]))
			So(err, ShouldBeNil)
			So(len(ids), ShouldEqual, 3)
		})

		Convey("When the evaluator identity is malformed", func() {
			_, err := progress.EligibleTargets("", users)
			So(errors.Is(err, model.ErrInvalidIdentity), ShouldBeTrue)
		})
	})
}

func TestComputeCoverage(t *testing.T) {
	Convey("Given assessments for two of four employees", t, func() {
		as := []model.Assessment{
			{EvaluatorID: "002", TargetID: "003", Rating: rating.Uniform(4)},
			{EvaluatorID: "004", TargetID: "003", Rating: rating.Uniform(5)},
			{EvaluatorID: "003", TargetID: "005", Rating: rating.Uniform(3)},
			{EvaluatorID: "003", TargetID: "001", Rating: rating.Uniform(3)},
		}

		c := progress.ComputeCoverage(users, as)

		Convey("Then admins are not counted", func() {
			So(c, ShouldResemble, progress.Coverage{Total: 4, Rated: 2, Unrated: 2})
		})
	})

	Convey("Given no assessments", t, func() {
		c := progress.ComputeCoverage(users, nil)
		So(c, ShouldResemble, progress.Coverage{Total: 4, Rated: 0, Unrated: 4})
	})
}
