package rating_test

import (
	"errors"
	"testing"

	"github.com/okian/peerfeedback/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDimension(t *testing.T) {
	Convey("Given dimension names", t, func() {
		cases := map[string]rating.Dimension{
			"service-orientation": rating.ServiceOrientation,
			"Service_Orientation": rating.ServiceOrientation,
			"service orientation": rating.ServiceOrientation,
			"pelayanan":           rating.ServiceOrientation,
			"ACCOUNTABILITY":      rating.Accountability,
			"akuntabel":           rating.Accountability,
			" competence ":        rating.Competence,
			"harmonis":            rating.Harmony,
			"loyalty":             rating.Loyalty,
			"adaptif":             rating.Adaptability,
			"collaboration":       rating.Collaboration,
		}

		Convey("Then each resolves to its dimension", func() {
			for name, want := range cases {
				got, err := rating.ParseDimension(name)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then unknown names fail", func() {
			_, err := rating.ParseDimension("punctuality")
			So(errors.Is(err, rating.ErrUnknownDimension), ShouldBeTrue)

			_, err = rating.ParseDimension("")
			So(errors.Is(err, rating.ErrUnknownDimension), ShouldBeTrue)
		})
	})

	Convey("Given the dimension enumeration", t, func() {
		all := rating.All()

		Convey("Then it has seven dimensions in canonical order", func() {
			So(len(all), ShouldEqual, rating.Count)
			So(all[0].String(), ShouldEqual, "service-orientation")
			So(all[6].String(), ShouldEqual, "collaboration")
			So(all[0].Alias(), ShouldEqual, "pelayanan")
		})

		Convey("Then out of range values are not valid", func() {
			So(rating.Dimension(-1).Valid(), ShouldBeFalse)
			So(rating.Dimension(rating.Count).Valid(), ShouldBeFalse)
			So(rating.Dimension(9).String(), ShouldEqual, "dimension(9)")
			So(rating.Dimension(9).Alias(), ShouldEqual, "")
		})
	})
}
