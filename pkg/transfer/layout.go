package transfer

import (
	"fmt"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
)

// 🗺️ Layout maps a folder to its place under the destination root
type Layout interface {
	Destination(root string, rec catalog.FolderRecord) string
}

// 📅 DatedLayout files folders as YYYY/MM-Month/DD-Weekday/<label>/<name>; an unlabelled
// folder sits directly under its day
type DatedLayout struct{}

// Destination implements Layout
func (DatedLayout) Destination(root string, rec catalog.FolderRecord) string {
	if !rec.Date.Valid() {
		return FlatLayout{}.Destination(root, rec)
	}
	d := rec.Date.Time
	day := filepath.Join(root,
		fmt.Sprintf("%04d", d.Year()),
		fmt.Sprintf("%02d-%s", int(d.Month()), d.Month()),
		fmt.Sprintf("%02d-%s", d.Day(), d.Weekday()),
	)
	if rec.Label == "" || rec.Label == rec.Name {
		return filepath.Join(day, rec.Name)
	}
	return filepath.Join(day, rec.Label, rec.Name)
}

// 📂 FlatLayout mirrors the folder's path relative to the source root
type FlatLayout struct{}

// Destination implements Layout
func (FlatLayout) Destination(root string, rec catalog.FolderRecord) string {
	return filepath.Join(root, filepath.FromSlash(rec.ID))
}

// LayoutFor returns the layout with the given config name
func LayoutFor(name string) (Layout, error) {
	switch name {
	case config.LayoutDated, "":
		return DatedLayout{}, nil
	case config.LayoutFlat:
		return FlatLayout{}, nil
	default:
		return nil, errors.Errorf("unknown destination layout %q", name)
	}
}
