package input

import (
	"reflect"
	"testing"

	"hapticrig/simulator/internal/device"
)

func demoConfigs() []DeviceConfig {
	return []DeviceConfig{
		{Name: "Vibrator 1", Enabled: true, Events: []string{"vibrate"}},
		{Name: "Vibrator 2", Enabled: false, Events: []string{"vibrate"}},
		{Name: "Linear 1", Enabled: true, Events: []string{"stroke"}},
		{Name: "Rotator 1", Enabled: true, Events: []string{}},
	}
}

func TestResolveMatchesNormalizedTags(t *testing.T) {
	//1.- Tags arrive untrimmed and mixed-case from external surfaces.
	params := Resolve([]string{"  Vibrate "}, Pattern{Name: "pulse", Action: ActionScalar}, demoConfigs())
	if !reflect.DeepEqual(params.Selector, []string{"Vibrator 1"}) {
		t.Fatalf("expected only enabled vibrator, got %v", params.Selector)
	}
	//2.- The original, pre-normalization event list must be preserved.
	if !reflect.DeepEqual(params.Events, []string{"  Vibrate "}) {
		t.Fatalf("original events mangled: %v", params.Events)
	}
}

func TestResolveIsIdempotentUnderRenormalization(t *testing.T) {
	configs := demoConfigs()
	pattern := Pattern{Name: "pulse", Action: ActionScalar}
	messy := Resolve([]string{"Vibrate", " vibrate "}, pattern, configs)
	clean := Resolve([]string{"vibrate"}, pattern, configs)
	if !reflect.DeepEqual(messy.Selector, clean.Selector) {
		t.Fatalf("selector differs under re-normalization: %v vs %v", messy.Selector, clean.Selector)
	}
}

func TestResolveEmptyTagListSelectsAllEnabled(t *testing.T) {
	params := Resolve(nil, Pattern{Name: "pulse", Action: ActionScalar}, demoConfigs())
	want := []string{"Vibrator 1", "Linear 1", "Rotator 1"}
	if !reflect.DeepEqual(params.Selector, want) {
		t.Fatalf("expected every enabled entry %v, got %v", want, params.Selector)
	}
}

func TestResolveUnmatchedTagsSelectNothing(t *testing.T) {
	params := Resolve([]string{"sting"}, Pattern{Name: "pulse", Action: ActionScalar}, demoConfigs())
	if len(params.Selector) != 0 {
		t.Fatalf("expected empty selector, got %v", params.Selector)
	}
}

func TestResolveNeverSelectsDisabledEntries(t *testing.T) {
	params := Resolve([]string{"vibrate"}, Pattern{Name: "pulse", Action: ActionScalar}, demoConfigs())
	for _, name := range params.Selector {
		if name == "Vibrator 2" {
			t.Fatal("disabled entry selected")
		}
	}
}

func TestFilterDevicesRequiresCapability(t *testing.T) {
	//1.- The selector names a vibrator and a linear device.
	params := Params{
		Selector: []string{"Vibrator 1", "Linear 1"},
		Pattern:  Pattern{Name: "pulse", Action: ActionScalar},
	}
	roster := device.DemoRoster()

	//2.- A scalar pattern must drop the linear-only device at dispatch.
	filtered := params.FilterDevices(roster)
	if len(filtered) != 1 || filtered[0].DeviceName != "Vibrator 1" {
		t.Fatalf("expected only the scalar-capable device, got %v", filtered)
	}

	//3.- The same selector with a linear pattern keeps only the linear device.
	params.Pattern.Action = ActionLinear
	filtered = params.FilterDevices(roster)
	if len(filtered) != 1 || filtered[0].DeviceName != "Linear 1" {
		t.Fatalf("expected only the linear-capable device, got %v", filtered)
	}
}

func TestFilterDevicesMatchesNamesCaseInsensitively(t *testing.T) {
	params := Params{
		Selector: []string{"vibrator 1"},
		Pattern:  Pattern{Name: "pulse", Action: ActionScalar},
	}
	filtered := params.FilterDevices(device.DemoRoster())
	if len(filtered) != 1 || filtered[0].DeviceIndex != 1 {
		t.Fatalf("expected case-insensitive name match, got %v", filtered)
	}
}

func TestParseListDropsEmptySegments(t *testing.T) {
	got := ParseList(" Vibrate, ,stroke,,  SPIN ")
	want := []string{"vibrate", "stroke", "spin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseList = %v, want %v", got, want)
	}
}

func TestReadListFiltersPaddingSlots(t *testing.T) {
	//1.- Constrained callers pad fixed-size lists with empty strings.
	got := ReadList([]string{"", "Vibrate", "", "stroke", ""})
	want := []string{"Vibrate", "stroke"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadList = %v, want %v", got, want)
	}
}

func TestSanitizeNames(t *testing.T) {
	got := SanitizeNames([]string{"  Vibrate ", "STROKE"})
	want := []string{"vibrate", "stroke"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SanitizeNames = %v, want %v", got, want)
	}
}
