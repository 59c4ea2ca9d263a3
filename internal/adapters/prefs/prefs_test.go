package prefs_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/okian/clicker/internal/adapters/prefs"
	"github.com/okian/clicker/internal/domain/capture"
	. "github.com/smartystreets/goconvey/convey"
)

func readKV(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	kv := map[string]string{}
	if err := json.Unmarshal(data, &kv); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return kv
}

func TestPrefsFile(t *testing.T) {
	Convey("Given a preference file location", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "prefs.json")
		f := prefs.Open(path)

		Convey("When nothing has been saved yet", func() {
			p, err := f.Load(ctx)

			Convey("Then defaults are returned and written back", func() {
				So(err, ShouldBeNil)
				So(p.Bindings, ShouldResemble, capture.DefaultBindings())
				So(p.JudgeName, ShouldEqual, "")
				kv := readKV(t, path)
				So(kv[prefs.KeyPositive], ShouldEqual, "1")
				So(kv[prefs.KeyNegative], ShouldEqual, "0")
			})
		})

		Convey("When preferences are saved and loaded again", func() {
			want := prefs.Prefs{
				Bindings:  capture.Bindings{Positive: "j", Negative: "k"},
				JudgeName: "Judge Dredd",
			}
			So(f.Save(ctx, want), ShouldBeNil)
			got, err := prefs.Open(path).Load(ctx)

			Convey("Then they round trip", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
			})
		})

		Convey("When the stored bindings are invalid", func() {
			So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
			raw := `{"KEY_POSITIVE":"ab","KEY_NEGATIVE":"0","JUDGE_NAME":"x"}`
			So(os.WriteFile(path, []byte(raw), 0o600), ShouldBeNil)
			p, err := f.Load(ctx)

			Convey("Then defaults replace them and are persisted", func() {
				So(err, ShouldBeNil)
				So(p.Bindings, ShouldResemble, capture.DefaultBindings())
				So(p.JudgeName, ShouldEqual, "x")
				So(readKV(t, path)[prefs.KeyPositive], ShouldEqual, "1")
			})
		})

		Convey("When the stored judge name is too long", func() {
			So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
			long := strings.Repeat("n", 45)
			raw := `{"KEY_POSITIVE":"1","KEY_NEGATIVE":"0","JUDGE_NAME":"` + long + `"}`
			So(os.WriteFile(path, []byte(raw), 0o600), ShouldBeNil)
			p, err := prefs.Open(path, prefs.WithNameLimit(30)).Load(ctx)

			Convey("Then it is truncated to the limit", func() {
				So(err, ShouldBeNil)
				So(len(p.JudgeName), ShouldEqual, 30)
			})
		})

		Convey("When the file is not JSON", func() {
			So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
			So(os.WriteFile(path, []byte("not json"), 0o600), ShouldBeNil)
			_, err := f.Load(ctx)

			Convey("Then ErrCorrupt is returned", func() {
				So(errors.Is(err, prefs.ErrCorrupt), ShouldBeTrue)
			})
		})

		Convey("When saving invalid bindings", func() {
			err := f.Save(ctx, prefs.Prefs{Bindings: capture.Bindings{Positive: "1", Negative: "1"}})

			Convey("Then the save is refused", func() {
				So(errors.Is(err, capture.ErrInvalidBindings), ShouldBeTrue)
				_, statErr := os.Stat(path)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When custom defaults are configured", func() {
			custom := capture.Bindings{Positive: "+", Negative: "-"}
			p, err := prefs.Open(path, prefs.WithDefaults(custom)).Load(ctx)

			Convey("Then they are used for a fresh file", func() {
				So(err, ShouldBeNil)
				So(p.Bindings, ShouldResemble, custom)
			})
		})
	})
}

func TestPrefsFile_ConcurrentSaves(t *testing.T) {
	Convey("Given one preference file shared by many sessions", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "prefs.json")
		f := prefs.Open(path)

		Convey("When they save at the same time", func() {
			const writers = 16
			errs := make([]error, writers)
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = f.Save(ctx, prefs.Prefs{
						Bindings:  capture.Bindings{Positive: "p", Negative: "n"},
						JudgeName: strings.Repeat("j", i+1),
					})
				}(i)
			}
			wg.Wait()

			Convey("Then every save succeeds and the file stays readable", func() {
				for _, err := range errs {
					So(err, ShouldBeNil)
				}
				kv := readKV(t, path)
				So(kv[prefs.KeyPositive], ShouldEqual, "p")
				So(kv[prefs.KeyNegative], ShouldEqual, "n")
				p, err := f.Load(ctx)
				So(err, ShouldBeNil)
				So(p.Bindings, ShouldResemble, capture.Bindings{Positive: "p", Negative: "n"})
			})
		})
	})
}
