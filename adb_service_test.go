package main

import (
	"strings"
	"testing"
)

const sampleDumpXML = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node text="" resource-id="" class="android.widget.FrameLayout" package="com.example.app" content-desc="" clickable="false" long-clickable="false" scrollable="false" focusable="false" enabled="true" checked="false" selected="false" bounds="[0,0][1080,1920]">
    <node text="Sign in" resource-id="com.example.app:id/sign_in" class="android.widget.Button" package="com.example.app" content-desc="Sign in button" clickable="true" long-clickable="false" scrollable="false" focusable="true" enabled="true" checked="false" selected="false" bounds="[100,300][980,420]"/>
    <node text="" resource-id="com.example.app:id/email" class="android.widget.EditText" package="com.example.app" content-desc="Email" clickable="true" long-clickable="true" scrollable="false" focusable="true" enabled="true" checked="false" selected="false" bounds="[100,500][980,600]"/>
  </node>
</hierarchy>`

func TestParseHierarchyXML_Basic(t *testing.T) {
	root, err := parseHierarchyXML(sampleDumpXML)
	if err != nil {
		t.Fatal(err)
	}
	if root.Class != "android.widget.FrameLayout" {
		t.Errorf("got root class %q", root.Class)
	}
	if len(root.Nodes) != 2 {
		t.Fatalf("got %d children", len(root.Nodes))
	}

	button := root.Nodes[0]
	if button.Text != "Sign in" || !button.Clickable || button.LongClickable {
		t.Errorf("got %+v", button)
	}
	if button.Bounds != "[100,300][980,420]" {
		t.Errorf("got bounds %q", button.Bounds)
	}
}

func TestParseHierarchyXML_StripsAdbNoise(t *testing.T) {
	noisy := "UI hierchary dumped to: /data/local/tmp/view.xml\n" + sampleDumpXML + "\ngarbage trailer"
	root, err := parseHierarchyXML(noisy)
	if err != nil {
		t.Fatal(err)
	}
	if root == nil || len(root.Nodes) != 2 {
		t.Fatalf("noise around the document must be trimmed, got %+v", root)
	}
}

func TestParseHierarchyXML_FixesBareAmpersands(t *testing.T) {
	xmlContent := `<?xml version='1.0'?>
<hierarchy>
  <node text="Tom & Jerry" class="android.widget.TextView" package="p" bounds="[0,0][10,10]" clickable="false" long-clickable="false" scrollable="false" focusable="false" enabled="true" checked="false" selected="false" resource-id="" content-desc="a &lt; b"/>
</hierarchy>`
	root, err := parseHierarchyXML(xmlContent)
	if err != nil {
		t.Fatal(err)
	}
	if root.Text != "Tom & Jerry" {
		t.Errorf("got %q", root.Text)
	}
	if root.ContentDesc != "a < b" {
		t.Errorf("existing entities must survive the fixup, got %q", root.ContentDesc)
	}
}

func TestParseHierarchyXML_NoWindowNodes(t *testing.T) {
	root, err := parseHierarchyXML(`<?xml version='1.0'?><hierarchy rotation="0"></hierarchy>`)
	if err != nil {
		t.Fatal(err)
	}
	if root != nil {
		t.Errorf("an empty hierarchy has no root, got %+v", root)
	}
}

func TestParseHierarchyXML_MultipleRootsWrapped(t *testing.T) {
	xmlContent := `<?xml version='1.0'?>
<hierarchy>
  <node text="a" class="c1" package="com.example" bounds="[0,0][1,1]" clickable="false" long-clickable="false" scrollable="false" focusable="false" enabled="true" checked="false" selected="false" resource-id="" content-desc=""/>
  <node text="b" class="c2" package="com.example" bounds="[0,0][1,1]" clickable="false" long-clickable="false" scrollable="false" focusable="false" enabled="true" checked="false" selected="false" resource-id="" content-desc=""/>
</hierarchy>`
	root, err := parseHierarchyXML(xmlContent)
	if err != nil {
		t.Fatal(err)
	}
	if root.Class != "android.view.View" || len(root.Nodes) != 2 {
		t.Errorf("multiple windows get a synthetic container, got %+v", root)
	}
	if root.Package != "com.example" {
		t.Errorf("container inherits the first window's package, got %q", root.Package)
	}
}

func TestParseHierarchyXML_Malformed(t *testing.T) {
	if _, err := parseHierarchyXML(`<?xml version='1.0'?><hierarchy><node`); err == nil {
		t.Error("Expected parse error")
	}
}

func TestParseBounds(t *testing.T) {
	cases := []struct {
		in   string
		want Bounds
	}{
		{"[0,0][1080,1920]", Bounds{Left: 0, Top: 0, Right: 1080, Bottom: 1920}},
		{"[100,300][980,420]", Bounds{Left: 100, Top: 300, Right: 980, Bottom: 420}},
		{"[-5,-10][5,10]", Bounds{Left: -5, Top: -10, Right: 5, Bottom: 10}},
		{"garbage", Bounds{}},
		{"", Bounds{}},
	}
	for _, tc := range cases {
		if got := parseBounds(tc.in); got != tc.want {
			t.Errorf("%q: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestAdbNode_SnapshotView(t *testing.T) {
	root, err := parseHierarchyXML(sampleDumpXML)
	if err != nil {
		t.Fatal(err)
	}
	n := &adbNode{raw: root}

	if n.ChildCount() != 2 {
		t.Fatalf("got %d children", n.ChildCount())
	}
	button := n.Child(0)
	if button.Text() != "Sign in" || !button.Clickable() {
		t.Errorf("got %q clickable=%v", button.Text(), button.Clickable())
	}
	if button.Editable() {
		t.Error("A Button is not editable")
	}
	edit := n.Child(1)
	if !edit.Editable() {
		t.Error("An EditText is editable")
	}
	if n.Child(2) != nil || n.Child(-1) != nil {
		t.Error("Out-of-range children are nil")
	}

	b := button.Bounds()
	if b.Left != 100 || b.Bottom != 420 {
		t.Errorf("got %+v", b)
	}
}

func TestEscapeShellText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"hello world", "hello%sworld"},
		{"a&b", "a\\&b"},
		{"it's", "it\\'s"},
	}
	for _, tc := range cases {
		if got := escapeShellText(tc.in); got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestForegroundActivityRegex(t *testing.T) {
	out := "  mResumedActivity: ActivityRecord{ab3a179 u0 com.example.app/.MainActivity t123}"
	m := resumedRe.FindStringSubmatch(out)
	if len(m) != 3 || m[1] != "com.example.app" || m[2] != ".MainActivity" {
		t.Fatalf("got %v", m)
	}

	focus := "mCurrentFocus=Window{ab3a179 u0 com.android.settings/com.android.settings.Settings}"
	m = resumedRe.FindStringSubmatch(focus)
	if len(m) != 3 || m[1] != "com.android.settings" {
		t.Fatalf("fallback format should parse too, got %v", m)
	}
}

func TestScreenSizeRegex(t *testing.T) {
	m := screenSizeRe.FindStringSubmatch("Physical size: 1080x1920")
	if len(m) != 3 || m[1] != "1080" || m[2] != "1920" {
		t.Fatalf("got %v", m)
	}
}

func TestNewAdbService_Defaults(t *testing.T) {
	s := NewAdbService("", "")
	if s.adbPath != "adb" {
		t.Errorf("got %q", s.adbPath)
	}
	s = NewAdbService("/opt/sdk/adb", "emulator-5554")
	if s.adbPath != "/opt/sdk/adb" || s.deviceID != "emulator-5554" {
		t.Errorf("got %+v", s)
	}
}

func TestParseHierarchyXML_EscapedTextRoundTrip(t *testing.T) {
	// uiautomator emits attribute values pre-escaped; make sure a mix of
	// escaped and raw characters lands as the intended text.
	xmlContent := strings.ReplaceAll(sampleDumpXML, `content-desc="Email"`, `content-desc="a &amp;&amp; b"`)
	root, err := parseHierarchyXML(xmlContent)
	if err != nil {
		t.Fatal(err)
	}
	if root.Nodes[1].ContentDesc != "a && b" {
		t.Errorf("got %q", root.Nodes[1].ContentDesc)
	}
}
