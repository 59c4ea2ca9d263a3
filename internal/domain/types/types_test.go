package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/clicker/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNotice(t *testing.T) {
	Convey("Given notices of each kind", t, func() {
		Convey("Then only failures are blocking", func() {
			So(types.Notice{Kind: types.NoticeInfo}.Blocking(), ShouldBeFalse)
			So(types.Notice{Kind: types.NoticeConflict}.Blocking(), ShouldBeFalse)
			So(types.Notice{Kind: types.NoticeFormat}.Blocking(), ShouldBeTrue)
			So(types.Notice{Kind: types.NoticeLink}.Blocking(), ShouldBeTrue)
			So(types.Notice{Kind: types.NoticeNotFound}.Blocking(), ShouldBeTrue)
			So(types.Notice{Kind: types.NoticeTransport}.Blocking(), ShouldBeTrue)
		})

		Convey("When encoding a notice without a URL", func() {
			b, err := json.Marshal(types.Notice{Kind: types.NoticeFormat, Message: "bad"})

			Convey("Then the url field is omitted", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"kind":"format_error","message":"bad"}`)
			})
		})
	})
}

func TestPublishResult(t *testing.T) {
	Convey("Given a failed publish", t, func() {
		b, err := json.Marshal(types.PublishResult{Status: types.StatusPublishFailed})

		Convey("Then only the status is encoded", func() {
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"status":"Error: score publish failed :["}`)
		})
	})
}
