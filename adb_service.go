package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ========================================
// ADB-backed platform service
// Implements the Service surface on top of adb shell. Nodes are snapshots of
// a uiautomator dump rather than live handles, so Recycle is a no-op and
// staleness shows up as a failed input command instead of a dead handle.
// ========================================

var (
	boundsRe     = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)
	screenSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)
	resumedRe    = regexp.MustCompile(`u0 ([^/\s]+)/([^\s}]+)`)
)

// AdbService drives a device over adb. Zero value is not usable; construct
// with NewAdbService.
type AdbService struct {
	adbPath  string
	deviceID string
	timeout  time.Duration
}

func NewAdbService(adbPath, deviceID string) *AdbService {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &AdbService{
		adbPath:  adbPath,
		deviceID: deviceID,
		timeout:  30 * time.Second,
	}
}

// run executes an adb command against the bound device. A leading "shell "
// keeps the remainder as a single shell argument so pipes and && survive.
func (s *AdbService) run(ctx context.Context, fullCmd string) (string, error) {
	fullCmd = strings.TrimSpace(fullCmd)
	if fullCmd == "" {
		return "", nil
	}

	var args []string
	if s.deviceID != "" {
		args = append(args, "-s", s.deviceID)
	}
	if rest, ok := strings.CutPrefix(fullCmd, "shell "); ok {
		args = append(args, "shell", rest)
	} else {
		args = append(args, strings.Fields(fullCmd)...)
	}

	cmd := exec.CommandContext(ctx, s.adbPath, args...)
	output, err := cmd.CombinedOutput()
	res := string(output)
	if err != nil {
		return res, fmt.Errorf("adb command failed: %w, output: %s", err, res)
	}
	return strings.TrimSpace(res), nil
}

func (s *AdbService) runShort(fullCmd string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.run(ctx, fullCmd)
}

// ========================================
// Hierarchy dump
// ========================================

type uiXMLNode struct {
	XMLName       xml.Name    `xml:"node"`
	Text          string      `xml:"text,attr"`
	ResourceID    string      `xml:"resource-id,attr"`
	Class         string      `xml:"class,attr"`
	Package       string      `xml:"package,attr"`
	ContentDesc   string      `xml:"content-desc,attr"`
	Clickable     bool        `xml:"clickable,attr"`
	LongClickable bool        `xml:"long-clickable,attr"`
	Scrollable    bool        `xml:"scrollable,attr"`
	Focusable     bool        `xml:"focusable,attr"`
	Enabled       bool        `xml:"enabled,attr"`
	Checked       bool        `xml:"checked,attr"`
	Selected      bool        `xml:"selected,attr"`
	Bounds        string      `xml:"bounds,attr"`
	Nodes         []uiXMLNode `xml:"node"`
}

type uiXMLHierarchy struct {
	XMLName xml.Name    `xml:"hierarchy"`
	Nodes   []uiXMLNode `xml:"node"`
}

// RootNode dumps the current window via uiautomator and wraps the parsed tree
// in Node handles. Dumping is flaky so we retry a few times, killing stray
// uiautomator processes between attempts.
func (s *AdbService) RootNode() (Node, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var xmlContent string
	var err error
	maxRetries := 3
	dumpFile := "/data/local/tmp/view.xml"

	for i := 0; i < maxRetries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if i > 0 {
			s.run(ctx, "shell pkill uiautomator")
			time.Sleep(500 * time.Millisecond)
		}

		combinedCmd := fmt.Sprintf("shell uiautomator dump %s && cat %s", dumpFile, dumpFile)
		xmlContent, err = s.run(ctx, combinedCmd)
		if err == nil && strings.Contains(xmlContent, "<?xml") {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		LogDebug("adb").Int("retry", i+1).Err(err).Msg("UI dump retry")
	}

	if err != nil || xmlContent == "" {
		return nil, fmt.Errorf("failed to dump UI after %d attempts: %v", maxRetries, err)
	}

	root, err := parseHierarchyXML(xmlContent)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrNoActiveWindow
	}
	return &adbNode{svc: s, raw: root}, nil
}

// parseHierarchyXML cleans raw uiautomator output and unmarshals it. A dump
// with no window nodes maps to nil, letting the caller report the no-window
// condition.
func parseHierarchyXML(xmlContent string) (*uiXMLNode, error) {
	// Trim adb header/footer noise around the document
	if startIdx := strings.Index(xmlContent, "<?xml"); startIdx != -1 {
		xmlContent = xmlContent[startIdx:]
	}
	if endIdx := strings.LastIndex(xmlContent, ">"); endIdx != -1 && endIdx < len(xmlContent)-1 {
		xmlContent = xmlContent[:endIdx+1]
	}

	// Fix common XML escaping issues. Go's regexp has no lookaheads, so use
	// a safe replacement chain instead.
	xmlContent = strings.ReplaceAll(xmlContent, "&", "&amp;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;amp;", "&amp;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;lt;", "&lt;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;gt;", "&gt;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;quot;", "&quot;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;apos;", "&apos;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;#", "&#")

	var doc uiXMLHierarchy
	if err := xml.Unmarshal([]byte(xmlContent), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse UI XML (length: %d): %w", len(xmlContent), err)
	}

	switch len(doc.Nodes) {
	case 0:
		return nil, nil
	case 1:
		return &doc.Nodes[0], nil
	default:
		return &uiXMLNode{
			Class:   "android.view.View",
			Package: doc.Nodes[0].Package,
			Bounds:  "[0,0][0,0]",
			Nodes:   doc.Nodes,
		}, nil
	}
}

func parseBounds(s string) Bounds {
	m := boundsRe.FindStringSubmatch(s)
	if len(m) != 5 {
		return Bounds{}
	}
	l, _ := strconv.Atoi(m[1])
	t, _ := strconv.Atoi(m[2])
	r, _ := strconv.Atoi(m[3])
	b, _ := strconv.Atoi(m[4])
	return Bounds{Left: l, Top: t, Right: r, Bottom: b}
}

// ========================================
// Node handle over a dump snapshot
// ========================================

type adbNode struct {
	svc *AdbService
	raw *uiXMLNode
}

func (n *adbNode) Text() string        { return n.raw.Text }
func (n *adbNode) Description() string { return n.raw.ContentDesc }
func (n *adbNode) ClassName() string   { return n.raw.Class }
func (n *adbNode) PackageName() string { return n.raw.Package }
func (n *adbNode) ResourceID() string  { return n.raw.ResourceID }
func (n *adbNode) Bounds() Bounds      { return parseBounds(n.raw.Bounds) }

func (n *adbNode) Clickable() bool     { return n.raw.Clickable }
func (n *adbNode) LongClickable() bool { return n.raw.LongClickable }
func (n *adbNode) Scrollable() bool    { return n.raw.Scrollable }
func (n *adbNode) Focusable() bool     { return n.raw.Focusable }
func (n *adbNode) Enabled() bool       { return n.raw.Enabled }
func (n *adbNode) Checked() bool       { return n.raw.Checked }
func (n *adbNode) Selected() bool      { return n.raw.Selected }

// Editable is not an attribute uiautomator exports, so infer it from the
// widget class the way input targeting expects.
func (n *adbNode) Editable() bool {
	return strings.Contains(n.raw.Class, "EditText") ||
		strings.Contains(n.raw.Class, "AutoCompleteTextView")
}

func (n *adbNode) ChildCount() int { return len(n.raw.Nodes) }

func (n *adbNode) Child(i int) Node {
	if i < 0 || i >= len(n.raw.Nodes) {
		return nil
	}
	return &adbNode{svc: n.svc, raw: &n.raw.Nodes[i]}
}

// Recycle is a no-op: snapshot nodes hold no platform resources.
func (n *adbNode) Recycle() {}

func (n *adbNode) Perform(action NodeAction, arg string) bool {
	b := n.Bounds()
	if !b.Valid() {
		return false
	}
	cx, cy := b.Center()

	var err error
	switch action {
	case ActionClick:
		_, err = n.svc.runShort(fmt.Sprintf("shell input tap %d %d", cx, cy))
	case ActionLongClick:
		// swipe in place with a hold duration acts as a long press
		_, err = n.svc.runShort(fmt.Sprintf("shell input swipe %d %d %d %d 800", cx, cy, cx, cy))
	case ActionSetText:
		if _, err = n.svc.runShort(fmt.Sprintf("shell input tap %d %d", cx, cy)); err != nil {
			return false
		}
		_, err = n.svc.runShort("shell input text " + escapeShellText(arg))
	case ActionScrollForward:
		_, err = n.svc.runShort(fmt.Sprintf("shell input swipe %d %d %d %d 300",
			cx, b.Top+(b.Bottom-b.Top)*3/4, cx, b.Top+(b.Bottom-b.Top)/4))
	case ActionScrollBackward:
		_, err = n.svc.runShort(fmt.Sprintf("shell input swipe %d %d %d %d 300",
			cx, b.Top+(b.Bottom-b.Top)/4, cx, b.Top+(b.Bottom-b.Top)*3/4))
	default:
		return false
	}
	if err != nil {
		LogDebug("adb").Str("action", action.String()).Err(err).Msg("node action failed")
		return false
	}
	return true
}

// escapeShellText prepares text for `input text`, which treats spaces as
// argument separators and %s as a literal space.
func escapeShellText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, " ", "%s")
	s = strings.ReplaceAll(s, "&", "\\&")
	s = strings.ReplaceAll(s, "<", "\\<")
	s = strings.ReplaceAll(s, ">", "\\>")
	s = strings.ReplaceAll(s, "(", "\\(")
	s = strings.ReplaceAll(s, ")", "\\)")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "|", "\\|")
	return s
}

// ========================================
// Gestures and global actions
// ========================================

// DispatchGesture replays the path as chained input swipes in a background
// goroutine. The returned channel resolves once with the outcome.
func (s *AdbService) DispatchGesture(path GesturePath) (<-chan bool, error) {
	if len(path.Points) < 2 {
		return nil, fmt.Errorf("gesture path needs at least 2 points, got %d", len(path.Points))
	}
	if len(path.Durations) != len(path.Points)-1 {
		return nil, fmt.Errorf("gesture path has %d points but %d durations",
			len(path.Points), len(path.Durations))
	}

	done := make(chan bool, 1)
	go func() {
		for i := 0; i < len(path.Points)-1; i++ {
			from, to := path.Points[i], path.Points[i+1]
			ms := path.Durations[i].Milliseconds()
			var cmd string
			if from == to {
				// degenerate segment is a tap (or a hold, for long durations)
				if ms <= 150 {
					cmd = fmt.Sprintf("shell input tap %d %d", int(from.X), int(from.Y))
				} else {
					cmd = fmt.Sprintf("shell input swipe %d %d %d %d %d",
						int(from.X), int(from.Y), int(to.X), int(to.Y), ms)
				}
			} else {
				cmd = fmt.Sprintf("shell input swipe %d %d %d %d %d",
					int(from.X), int(from.Y), int(to.X), int(to.Y), ms)
			}
			if _, err := s.runShort(cmd); err != nil {
				LogWarn("adb").Int("segment", i).Err(err).Msg("gesture segment failed")
				done <- false
				return
			}
		}
		done <- true
	}()
	return done, nil
}

func (s *AdbService) GlobalAction(action GlobalAction) bool {
	var cmd string
	switch action {
	case GlobalBack:
		cmd = "shell input keyevent 4"
	case GlobalHome:
		cmd = "shell input keyevent 3"
	case GlobalRecents:
		cmd = "shell input keyevent 187"
	case GlobalNotifications:
		cmd = "shell cmd statusbar expand-notifications"
	case GlobalQuickSettings:
		cmd = "shell cmd statusbar expand-settings"
	default:
		return false
	}
	if _, err := s.runShort(cmd); err != nil {
		LogDebug("adb").Str("action", action.String()).Err(err).Msg("global action failed")
		return false
	}
	return true
}

// ========================================
// App and display queries
// ========================================

// LaunchPackage starts the launchable activity via monkey, which resolves the
// launcher intent without needing to know the activity name.
func (s *AdbService) LaunchPackage(pkg string) error {
	out, err := s.runShort(fmt.Sprintf("shell monkey -p %s -c android.intent.category.LAUNCHER 1", pkg))
	if err != nil {
		return err
	}
	if strings.Contains(out, "No activities found") {
		return fmt.Errorf("no launchable activity for package: %s", pkg)
	}
	return nil
}

func (s *AdbService) OpenURL(url string) error {
	out, err := s.runShort(fmt.Sprintf("shell am start -a android.intent.action.VIEW -d %s", url))
	if err != nil {
		return err
	}
	if strings.Contains(out, "Error") {
		return fmt.Errorf("failed to open url: %s", out)
	}
	return nil
}

func (s *AdbService) ScreenSize() (int, int, error) {
	out, err := s.runShort("shell wm size")
	if err != nil {
		return 0, 0, err
	}
	// Physical size: 1080x1920
	m := screenSizeRe.FindStringSubmatch(out)
	if len(m) != 3 {
		return 0, 0, fmt.Errorf("unexpected wm size output: %s", out)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, nil
}

func (s *AdbService) ForegroundApp() (string, string, error) {
	out, err := s.runShort("shell dumpsys activity activities | grep mResumedActivity")
	if err != nil || out == "" {
		// Fallback for devices where the activity dump format differs
		out, err = s.runShort("shell dumpsys window displays | grep mCurrentFocus")
		if err != nil {
			return "", "", err
		}
	}
	// mResumedActivity: ActivityRecord{xxx u0 com.example/.MainActivity t123}
	m := resumedRe.FindStringSubmatch(out)
	if len(m) != 3 {
		return "", "", fmt.Errorf("could not parse foreground activity from: %s", out)
	}
	return m[1], m[2], nil
}
