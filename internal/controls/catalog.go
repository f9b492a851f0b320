package controls

import (
	"sort"

	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// Kind classifies a control for synchronization purposes.
type Kind int

// Kinds in display order. Unsupported controls are retained so the
// catalog reflects everything the driver reported, but they are neither
// read nor written.
const (
	KindInteger Kind = iota
	KindBoolean
	KindMenu
	KindUnsupported
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindMenu:
		return "menu"
	default:
		return "unsupported"
	}
}

// Control is one entry of the control catalog. Integer and boolean
// controls carry a hardware-backed Value refreshed every tick; menu
// controls are write-only and tracked through the shadow selection
// table instead.
type Control struct {
	ID      uint32
	Name    string
	Kind    Kind
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Items   []v4l2.MenuItem // menu kinds only

	// Value is the last value read from hardware. Meaningless for
	// menu and unsupported kinds.
	Value int32
}

// kindOf maps a raw control type to a synchronization kind.
func kindOf(t v4l2.ControlType) Kind {
	switch t {
	case v4l2.CtrlTypeInteger:
		return KindInteger
	case v4l2.CtrlTypeBoolean:
		return KindBoolean
	case v4l2.CtrlTypeMenu, v4l2.CtrlTypeIntegerMenu:
		return KindMenu
	default:
		return KindUnsupported
	}
}

// buildCatalog converts raw descriptors into catalog entries sorted by
// kind. The sort is stable so driver order is preserved within a kind.
func buildCatalog(raw []v4l2.ControlInfo) []Control {
	catalog := make([]Control, 0, len(raw))
	for _, info := range raw {
		ctrl := Control{
			ID:      info.ID,
			Name:    info.Name,
			Kind:    kindOf(info.Type),
			Minimum: info.Minimum,
			Maximum: info.Maximum,
			Step:    info.Step,
			Default: info.Default,
			Items:   info.Items,
			Value:   info.Default,
		}
		catalog = append(catalog, ctrl)
	}

	sort.SliceStable(catalog, func(i, j int) bool {
		return catalog[i].Kind < catalog[j].Kind
	})

	return catalog
}

// defaultLabel resolves a menu control's default item label by scanning
// its items for the default value. Returns ok=false when no item
// matches, which happens with sparse menus.
func defaultLabel(ctrl Control) (string, bool) {
	for _, item := range ctrl.Items {
		if item.Value == int64(ctrl.Default) {
			return item.Label, true
		}
	}
	return "", false
}
