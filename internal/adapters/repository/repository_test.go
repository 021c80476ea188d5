package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/covcall/internal/adapters/repository"
	"github.com/okian/covcall/internal/screening"
	. "github.com/smartystreets/goconvey/convey"
)

func newResult() *screening.Result {
	return &screening.Result{RunID: uuid.New()}
}

func TestMemoryRunStore(t *testing.T) {
	Convey("Given a run store holding two runs", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryRunStore(repository.WithHistory(2))

		Convey("When it is empty", func() {
			_, err := store.Latest(ctx)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = store.Get(ctx, uuid.New())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(store.Count(ctx), ShouldEqual, 0)
		})

		Convey("When three runs are stored", func() {
			a, b, c := newResult(), newResult(), newResult()
			So(store.Put(ctx, a), ShouldBeNil)
			So(store.Put(ctx, b), ShouldBeNil)
			So(store.Put(ctx, c), ShouldBeNil)

			Convey("Then the oldest is evicted", func() {
				So(store.Count(ctx), ShouldEqual, 2)
				_, err := store.Get(ctx, a.RunID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				got, err := store.Get(ctx, b.RunID)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, b)
			})

			Convey("Then Latest returns the newest", func() {
				got, err := store.Latest(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, c)
			})
		})

		Convey("When the same run is stored twice", func() {
			a := newResult()
			So(store.Put(ctx, a), ShouldBeNil)
			So(store.Put(ctx, a), ShouldBeNil)
			So(store.Count(ctx), ShouldEqual, 1)
		})
	})
}

func TestMemorySymbolStore(t *testing.T) {
	Convey("Given a seeded memory symbol store", t, func() {
		ctx := context.Background()
		store := repository.NewMemorySymbolStore("AAPL")

		got, err := store.Load(ctx)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, []string{"AAPL"})

		Convey("Then the loaded slice is a copy", func() {
			got[0] = "ZZZ"
			again, _ := store.Load(ctx)
			So(again, ShouldResemble, []string{"AAPL"})
		})

		Convey("Then Save replaces the list", func() {
			So(store.Save(ctx, []string{"MSFT", "SPY"}), ShouldBeNil)
			again, _ := store.Load(ctx)
			So(again, ShouldResemble, []string{"MSFT", "SPY"})
		})
	})
}

func TestFileSymbolStore(t *testing.T) {
	Convey("Given a file symbol store in a temp dir", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "symbols.json")
		store := repository.NewFileSymbolStore(path)

		Convey("When nothing was saved yet", func() {
			got, err := store.Load(ctx)

			Convey("Then an empty list is returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
				So(got, ShouldNotBeNil)
			})
		})

		Convey("When symbols are saved", func() {
			So(store.Save(ctx, []string{"AAPL", "MSFT"}), ShouldBeNil)

			Convey("Then a new store on the same path reads them in order", func() {
				got, err := repository.NewFileSymbolStore(path).Load(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []string{"AAPL", "MSFT"})
			})

			Convey("Then no temp files are left behind", func() {
				entries, err := os.ReadDir(filepath.Dir(path))
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
			})

			Convey("Then saving nil stores an empty list", func() {
				So(store.Save(ctx, nil), ShouldBeNil)
				got, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the file is corrupt", func() {
			So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
			So(os.WriteFile(path, []byte("{not json"), 0o600), ShouldBeNil)

			_, err := store.Load(ctx)
			So(errors.Is(err, repository.ErrCorrupt), ShouldBeTrue)
		})
	})
}
