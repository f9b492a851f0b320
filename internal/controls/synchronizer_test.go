package controls

import (
	"errors"
	"testing"

	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
)

// fakeDriver simulates a device's control surface. Menu values are
// write-only like real UVC hardware: reads of menu controls return
// garbage rather than the last written value.
type fakeDriver struct {
	controls  []v4l2.ControlInfo
	values    map[uint32]int32
	queryErr  error
	failRead  map[uint32]bool
	failWrite map[uint32]bool
	writes    []uint32 // write order, by control ID
}

func (f *fakeDriver) QueryControls() ([]v4l2.ControlInfo, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.controls, nil
}

func (f *fakeDriver) GetControl(id uint32) (int32, error) {
	if f.failRead[id] {
		return 0, errors.New("read failed")
	}
	v, ok := f.values[id]
	if !ok {
		return 0, errors.New("no such control")
	}
	return v, nil
}

func (f *fakeDriver) SetControl(id uint32, value int32) error {
	if f.failWrite[id] {
		return errors.New("write rejected")
	}
	f.values[id] = value
	f.writes = append(f.writes, id)
	return nil
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		controls: []v4l2.ControlInfo{
			{ID: 1, Name: "Power Line Frequency", Type: v4l2.CtrlTypeMenu,
				Minimum: 0, Maximum: 2, Default: 2,
				Items: []v4l2.MenuItem{
					{Value: 0, Label: "Disabled"},
					{Value: 1, Label: "50 Hz"},
					{Value: 2, Label: "60 Hz"},
				}},
			{ID: 2, Name: "Brightness", Type: v4l2.CtrlTypeInteger,
				Minimum: 0, Maximum: 255, Step: 1, Default: 128},
			{ID: 3, Name: "Auto White Balance", Type: v4l2.CtrlTypeBoolean,
				Minimum: 0, Maximum: 1, Default: 1},
			{ID: 4, Name: "Pan Reset", Type: v4l2.CtrlTypeButton},
			{ID: 5, Name: "Contrast", Type: v4l2.CtrlTypeInteger,
				Minimum: 0, Maximum: 100, Step: 5, Default: 50},
		},
		values: map[uint32]int32{
			2: 128,
			3: 1,
			5: 50,
		},
		failRead:  make(map[uint32]bool),
		failWrite: make(map[uint32]bool),
	}
}

func newSync(t *testing.T, driver Driver) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(driver)
	s.LoadCatalog()
	return s
}

func TestCatalogSortedByKind(t *testing.T) {
	s := newSync(t, newFakeDriver())

	catalog := s.Controls()
	if len(catalog) != 5 {
		t.Fatalf("catalog has %d controls, want 5", len(catalog))
	}

	wantOrder := []string{"Brightness", "Contrast", "Auto White Balance", "Power Line Frequency", "Pan Reset"}
	for i, name := range wantOrder {
		if catalog[i].Name != name {
			t.Errorf("catalog[%d] = %q, want %q", i, catalog[i].Name, name)
		}
	}

	// Button is retained but classified unsupported
	if catalog[4].Kind != KindUnsupported {
		t.Errorf("Pan Reset kind = %v, want unsupported", catalog[4].Kind)
	}
}

func TestCatalogQueryFailureDegradesToEmpty(t *testing.T) {
	driver := newFakeDriver()
	driver.queryErr = errors.New("enumeration broken")

	s := newSync(t, driver)
	if len(s.Controls()) != 0 {
		t.Errorf("catalog should be empty after query failure, got %d controls", len(s.Controls()))
	}
}

func TestMenuShadowStartsUnknown(t *testing.T) {
	s := newSync(t, newFakeDriver())

	if got := s.MenuSelection("Power Line Frequency"); got != UnknownSelection {
		t.Errorf("fresh shadow = %q, want %q", got, UnknownSelection)
	}
	if got := s.MenuSelection("No Such Control"); got != UnknownSelection {
		t.Errorf("unknown control shadow = %q, want %q", got, UnknownSelection)
	}
}

func TestMenuEditUpdatesShadowOptimistically(t *testing.T) {
	driver := newFakeDriver()
	s := newSync(t, driver)

	s.EditMenu("Power Line Frequency", "50 Hz")
	s.Tick()

	if got := s.MenuSelection("Power Line Frequency"); got != "50 Hz" {
		t.Errorf("shadow = %q, want %q", got, "50 Hz")
	}
	if driver.values[1] != 1 {
		t.Errorf("hardware value = %d, want 1", driver.values[1])
	}
}

func TestMenuEditShadowSurvivesFailedWrite(t *testing.T) {
	driver := newFakeDriver()
	driver.failWrite[1] = true
	s := newSync(t, driver)

	// The shadow records the selection at click time; a hardware write
	// failure must not roll the rendered state back to the sentinel.
	s.EditMenu("Power Line Frequency", "50 Hz")
	s.Tick()

	if got := s.MenuSelection("Power Line Frequency"); got != "50 Hz" {
		t.Errorf("shadow after failed write = %q, want %q", got, "50 Hz")
	}
	if _, written := driver.values[1]; written {
		t.Error("rejected write still reached the device")
	}
}

func TestIntegerEditClampedAndQuantized(t *testing.T) {
	driver := newFakeDriver()
	s := newSync(t, driver)

	// Contrast has step 5: 52 snaps to 50, 999 clamps to 100
	s.Edit("Contrast", 52)
	s.Tick()
	if driver.values[5] != 50 {
		t.Errorf("value after quantized write = %d, want 50", driver.values[5])
	}

	s.Edit("Contrast", 999)
	s.Tick()
	if driver.values[5] != 100 {
		t.Errorf("value after clamped write = %d, want 100", driver.values[5])
	}
}

func TestReadPhaseObservesExternalChanges(t *testing.T) {
	driver := newFakeDriver()
	s := newSync(t, driver)

	// Simulate another tool changing brightness behind our back
	driver.values[2] = 42
	s.Tick()

	for _, ctrl := range s.Controls() {
		if ctrl.Name == "Brightness" && ctrl.Value != 42 {
			t.Errorf("Brightness value = %d, want 42", ctrl.Value)
		}
	}
}

func TestRestoreDefaultsResolvesMenuLabel(t *testing.T) {
	driver := &fakeDriver{
		controls: []v4l2.ControlInfo{
			{ID: 7, Name: "Quality", Type: v4l2.CtrlTypeMenu,
				Minimum: 1, Maximum: 3, Default: 2,
				Items: []v4l2.MenuItem{
					{Value: 1, Label: "Low"},
					{Value: 2, Label: "Med"},
					{Value: 3, Label: "High"},
				}},
		},
		values:    map[uint32]int32{},
		failWrite: make(map[uint32]bool),
	}
	s := newSync(t, driver)

	s.RestoreDefaults()

	if got := s.MenuSelection("Quality"); got != "Med" {
		t.Errorf("shadow after restore = %q, want %q", got, "Med")
	}
	if driver.values[7] != 2 {
		t.Errorf("hardware value = %d, want 2", driver.values[7])
	}
}

func TestRestoreDefaultsShadowSetBeforeWrite(t *testing.T) {
	driver := &fakeDriver{
		controls: []v4l2.ControlInfo{
			{ID: 7, Name: "Quality", Type: v4l2.CtrlTypeMenu,
				Minimum: 1, Maximum: 3, Default: 2,
				Items: []v4l2.MenuItem{
					{Value: 1, Label: "Low"},
					{Value: 2, Label: "Med"},
					{Value: 3, Label: "High"},
				}},
		},
		values:    map[uint32]int32{},
		failWrite: map[uint32]bool{7: true},
	}
	s := newSync(t, driver)

	s.RestoreDefaults()

	// The rendered selection shows the default even though the
	// hardware rejected the write.
	if got := s.MenuSelection("Quality"); got != "Med" {
		t.Errorf("shadow after restore with failing write = %q, want %q", got, "Med")
	}
}

func TestReadFailureIsolatedToOneControl(t *testing.T) {
	driver := newFakeDriver()
	s := newSync(t, driver)
	s.Tick() // baseline: Brightness 128, Contrast 50

	// Brightness goes flaky while Contrast changes externally
	driver.failRead[2] = true
	driver.values[5] = 75
	s.Tick()

	for _, ctrl := range s.Controls() {
		switch ctrl.Name {
		case "Brightness":
			if ctrl.Value != 128 {
				t.Errorf("Brightness = %d, want prior value 128", ctrl.Value)
			}
		case "Contrast":
			if ctrl.Value != 75 {
				t.Errorf("Contrast = %d, want refreshed 75", ctrl.Value)
			}
		}
	}
}

func TestRestoreDefaultsSkipsFailures(t *testing.T) {
	driver := newFakeDriver()
	driver.failWrite[2] = true // Brightness refuses writes
	s := newSync(t, driver)

	s.RestoreDefaults()

	// Other controls still restored
	if driver.values[5] != 50 {
		t.Errorf("Contrast = %d, want default 50", driver.values[5])
	}
	if driver.values[3] != 1 {
		t.Errorf("Auto White Balance = %d, want default 1", driver.values[3])
	}
}

func TestLoadCatalogClearsShadowAndPending(t *testing.T) {
	driver := newFakeDriver()
	s := newSync(t, driver)

	s.EditMenu("Power Line Frequency", "50 Hz")
	s.Tick()
	if got := s.MenuSelection("Power Line Frequency"); got != "50 Hz" {
		t.Fatalf("shadow = %q, want %q", got, "50 Hz")
	}

	// Device switch reloads the catalog; stale selections must not leak
	s.Edit("Brightness", 10)
	s.LoadCatalog()

	if got := s.MenuSelection("Power Line Frequency"); got != UnknownSelection {
		t.Errorf("shadow after reload = %q, want %q", got, UnknownSelection)
	}

	before := driver.values[2]
	s.Tick()
	if driver.values[2] != before {
		t.Error("pending edit from before reload was applied")
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name                  string
		value, min, max, step int32
		want                  int32
	}{
		{"below min", -10, 0, 100, 1, 0},
		{"above max", 300, 0, 255, 1, 255},
		{"in range step 1", 37, 0, 255, 1, 37},
		{"snap down", 52, 0, 100, 5, 50},
		{"snap up", 53, 0, 100, 5, 55},
		{"anchored at min", 7, 2, 100, 5, 7},
		{"zero step", 37, 0, 100, 0, 37},
		{"snap would exceed max", 99, 0, 100, 8, 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantize(tt.value, tt.min, tt.max, tt.step); got != tt.want {
				t.Errorf("Quantize(%d, %d, %d, %d) = %d, want %d",
					tt.value, tt.min, tt.max, tt.step, got, tt.want)
			}
		})
	}
}
