package main

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRootCommand(t *testing.T) {
	Convey("Given the test-publish command", t, func() {
		cmd := newRootCmd()

		Convey("Then flags carry their defaults", func() {
			broker, err := cmd.Flags().GetString("broker")
			So(err, ShouldBeNil)
			So(broker, ShouldEqual, "tcp://localhost:1883")

			n, err := cmd.Flags().GetInt("messages")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1000)
		})

		Convey("When qos is out of range", func() {
			cmd.SetArgs([]string{"--qos", "3", "--log", t.TempDir() + "/x.log"})
			cmd.SilenceErrors = true
			err := cmd.Execute()

			Convey("Then the command fails before connecting", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "--qos")
			})
		})
	})
}
