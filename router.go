package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ========================================
// Command Router
// Single entry point: maps a command name and parameter bag to a typed
// operation and normalizes every outcome into a result envelope.
// ========================================

// Envelope is the uniform command result. Exactly one of a positive outcome
// or an "error" field is meaningfully populated; echo fields (coordinates,
// text, trace id) are always included for traceability. Alias rather than a
// defined type so transport packages can accept plain maps.
type Envelope = map[string]any

// defaultCommandTimeout bounds interactive commands that await an async
// gesture completion. Applied around command handling as a whole, not per
// gesture.
const defaultCommandTimeout = 30 * time.Second

type handlerFunc func(ctx context.Context, params gjson.Result) Envelope

type commandSpec struct {
	name string
	fn   handlerFunc
	// interactive commands may await an unbounded async completion and get
	// the whole-command timeout.
	interactive bool
}

type routeRequest struct {
	name string
	raw  string
	resp chan Envelope
}

// Router dispatches commands onto one logical execution context: a single
// goroutine owns every platform-tree touch, so commands are processed to
// completion one at a time in arrival order. The platform associates its
// tree state with one context; the router does the marshalling so individual
// handlers never have to.
type Router struct {
	bridge  *Bridge
	specs   []commandSpec
	byName  map[string]commandSpec
	reqCh   chan *routeRequest
	quit    chan struct{}
	timeout time.Duration
}

func newRouter(b *Bridge) *Router {
	r := &Router{
		bridge:  b,
		byName:  make(map[string]commandSpec),
		reqCh:   make(chan *routeRequest),
		quit:    make(chan struct{}),
		timeout: defaultCommandTimeout,
	}
	r.registerAll()
	go r.run()
	return r
}

func (r *Router) register(name string, interactive bool, fn handlerFunc) {
	spec := commandSpec{name: name, fn: fn, interactive: interactive}
	r.specs = append(r.specs, spec)
	r.byName[name] = spec
}

func (r *Router) registerAll() {
	r.register("hierarchy", false, r.handleHierarchy)
	r.register("click", true, r.handleClick)
	r.register("clickByText", false, r.textActionHandler(ActionClick))
	r.register("longClickByText", false, r.textActionHandler(ActionLongClick))
	r.register("find", false, r.handleFind)
	r.register("input", false, r.handleInput)
	r.register("swipe", true, r.handleSwipe)
	r.register("scroll", false, r.handleScroll)
	r.register("back", false, r.globalActionHandler(GlobalBack))
	r.register("home", false, r.globalActionHandler(GlobalHome))
	r.register("recents", false, r.globalActionHandler(GlobalRecents))
	r.register("notifications", false, r.globalActionHandler(GlobalNotifications))
	r.register("quickSettings", false, r.globalActionHandler(GlobalQuickSettings))
	r.register("currentApp", false, r.handleCurrentApp)
	r.register("getScreenSize", false, r.handleScreenSize)
	r.register("openApp", false, r.handleOpenApp)
	r.register("openUrl", false, r.handleOpenURL)
	r.register("performGesture", true, r.handleGesture)
	r.register("history", false, r.handleHistory)
}

// Commands lists command names in registration order.
func (r *Router) Commands() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.name
	}
	return names
}

// SetTimeout overrides the whole-command timeout for interactive commands.
func (r *Router) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Close stops the dispatch goroutine. Pending Handle calls complete first.
func (r *Router) Close() {
	close(r.quit)
}

// Handle routes one command to its handler and returns the result envelope.
// The request is marshalled onto the router's dispatch goroutine; a second
// command is not accepted while that marshalling is pending. Handle never
// panics: platform-layer faults are caught at this boundary.
func (r *Router) Handle(name string, rawParams string) Envelope {
	req := &routeRequest{name: name, raw: rawParams, resp: make(chan Envelope, 1)}
	select {
	case r.reqCh <- req:
		return <-req.resp
	case <-r.quit:
		return Envelope{"error": "bridge shutting down", "command": name}
	}
}

func (r *Router) run() {
	for {
		select {
		case req := <-r.reqCh:
			req.resp <- r.process(req.name, req.raw)
		case <-r.quit:
			return
		}
	}
}

func (r *Router) process(name string, rawParams string) (env Envelope) {
	start := time.Now()
	traceID := uuid.New().String()[:8]

	// Any fault escaping a handler (including panics inside the platform
	// layer) is converted to an error envelope here; nothing propagates to
	// the transport.
	defer func() {
		if rec := recover(); rec != nil {
			LogError("router").
				Str("command", name).
				Str("traceId", traceID).
				Interface("panic", rec).
				Msg("handler fault")
			env = Envelope{"error": fmt.Sprint(rec), "command": name}
		}
		if _, ok := env["traceId"]; !ok {
			env["traceId"] = traceID
		}
		r.audit(name, rawParams, env, time.Since(start))
	}()

	spec, ok := r.byName[name]
	if !ok {
		return Envelope{
			"error":             "Unknown command: " + name,
			"availableCommands": r.Commands(),
		}
	}

	// A missing or unparsable payload is an empty parameter bag, never a
	// failure of the whole call.
	if rawParams == "" || !gjson.Valid(rawParams) {
		rawParams = "{}"
	}
	params := gjson.Parse(rawParams)

	ctx := context.Background()
	if spec.interactive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env = spec.fn(ctx, params)
	LogDebug("router").
		Str("command", name).
		Str("traceId", traceID).
		Dur("took", time.Since(start)).
		Msg("command handled")
	return env
}

// audit appends the round trip to the history store, best-effort. A store
// failure never fails the command.
func (r *Router) audit(name, rawParams string, env Envelope, took time.Duration) {
	store := r.bridge.historyStore()
	if store == nil || name == "history" {
		return
	}
	result, err := json.Marshal(env)
	if err != nil {
		result = []byte("{}")
	}
	rec := CommandRecord{
		Command:    name,
		Params:     rawParams,
		Result:     string(result),
		DurationMs: took.Milliseconds(),
	}
	if id, ok := env["traceId"].(string); ok {
		rec.ID = id
	}
	if ok, isBool := env["success"].(bool); isBool {
		rec.Success = ok
	}
	if msg, isStr := env["error"].(string); isStr {
		rec.Error = msg
	}
	if err := store.Record(rec); err != nil {
		LogWarn("router").Err(err).Msg("audit write failed")
	}
}

// ========================================
// Parameter helpers
// ========================================

// numParam extracts a required numeric parameter. Absent or non-numeric
// values count as missing; negative-but-present coordinates are accepted and
// left to the platform to reject.
func numParam(p gjson.Result, key string) (float64, bool) {
	v := p.Get(key)
	if !v.Exists() || v.Type != gjson.Number {
		return 0, false
	}
	return v.Float(), true
}

// strParam extracts a required non-empty string parameter.
func strParam(p gjson.Result, key string) (string, bool) {
	v := p.Get(key)
	if !v.Exists() || v.Type != gjson.String || v.String() == "" {
		return "", false
	}
	return v.String(), true
}

func boolParam(p gjson.Result, key string, def bool) bool {
	v := p.Get(key)
	if !v.Exists() || !v.IsBool() {
		return def
	}
	return v.Bool()
}

func intParam(p gjson.Result, key string, def int) int {
	v := p.Get(key)
	if !v.Exists() || v.Type != gjson.Number {
		return def
	}
	return int(v.Int())
}

func missingParam(name string) Envelope {
	return Envelope{"error": "Missing " + name}
}

func errorEnvelope(err error) Envelope {
	if errors.Is(err, ErrNoActiveWindow) {
		return Envelope{"error": "No active window"}
	}
	return Envelope{"error": err.Error()}
}

// ========================================
// Handlers
// ========================================

func (r *Router) handleHierarchy(_ context.Context, _ gjson.Result) Envelope {
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	root, err := svc.RootNode()
	if err != nil {
		// "No window" and "window with zero children" are different things;
		// an absent root is an error, not an empty tree.
		return errorEnvelope(err)
	}
	defer root.Recycle()
	return Envelope{"success": true, "hierarchy": SnapshotTree(root)}
}

func (r *Router) handleClick(ctx context.Context, p gjson.Result) Envelope {
	x, okX := numParam(p, "x")
	if !okX {
		return missingParam("x")
	}
	y, okY := numParam(p, "y")
	if !okY {
		return missingParam("y")
	}
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	ok, err := DispatchGesture(ctx, svc, TapPath(x, y))
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": ok, "x": x, "y": y}
}

// textActionHandler builds the handler shared by clickByText and
// longClickByText: locate by text, act on the node, pass the platform's
// success signal through.
func (r *Router) textActionHandler(action NodeAction) handlerFunc {
	return func(_ context.Context, p gjson.Result) Envelope {
		text, ok := strParam(p, "text")
		if !ok {
			return missingParam("text")
		}
		partial := boolParam(p, "partial", true)
		svc, err := r.bridge.service()
		if err != nil {
			return errorEnvelope(err)
		}
		root, err := svc.RootNode()
		if err != nil {
			return errorEnvelope(err)
		}
		defer root.Recycle()

		node := FindByText(root, text, partial)
		if node == nil {
			return Envelope{"success": false, "error": "Element not found: " + text}
		}
		if node != root {
			defer node.Recycle()
		}
		ok2 := PerformNodeAction(node, action, "")
		return Envelope{
			"success": ok2,
			"text":    text,
			"id":      NodeID(node),
			"bounds":  node.Bounds().String(),
		}
	}
}

func (r *Router) handleFind(_ context.Context, p gjson.Result) Envelope {
	text, ok := strParam(p, "text")
	if !ok {
		return missingParam("text")
	}
	partial := boolParam(p, "partial", true)
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	root, err := svc.RootNode()
	if err != nil {
		return errorEnvelope(err)
	}
	defer root.Recycle()

	node := FindByText(root, text, partial)
	if node == nil {
		return Envelope{"found": false, "text": text}
	}
	if node != root {
		defer node.Recycle()
	}
	return Envelope{"found": true, "text": text, "element": describeNode(node)}
}

func (r *Router) handleInput(_ context.Context, p gjson.Result) Envelope {
	text, ok := strParam(p, "text")
	if !ok {
		return missingParam("text")
	}
	targetText := p.Get("targetText").String()
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	root, err := svc.RootNode()
	if err != nil {
		return errorEnvelope(err)
	}
	defer root.Recycle()

	var node Node
	if targetText != "" {
		node = FindByText(root, targetText, true)
		if node == nil {
			return Envelope{"success": false, "error": "Element not found: " + targetText}
		}
	} else {
		// No explicit target: first editable field in pre-order.
		node = findNode(root, func(n Node) bool { return n.Editable() })
		if node == nil {
			return Envelope{"success": false, "error": "No editable field found"}
		}
	}
	if node != root {
		defer node.Recycle()
	}
	if !node.Editable() {
		// The platform call would just fail ambiguously; name the cause.
		return Envelope{"success": false, "error": "Element not editable: " + targetText}
	}
	ok2 := PerformNodeAction(node, ActionSetText, text)
	return Envelope{"success": ok2, "text": text}
}

func (r *Router) handleSwipe(ctx context.Context, p gjson.Result) Envelope {
	coords := make(map[string]float64, 4)
	for _, key := range []string{"startX", "startY", "endX", "endY"} {
		v, ok := numParam(p, key)
		if !ok {
			return missingParam(key)
		}
		coords[key] = v
	}
	durationMs := intParam(p, "duration", 300)
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	points := []GesturePoint{
		{X: coords["startX"], Y: coords["startY"]},
		{X: coords["endX"], Y: coords["endY"]},
	}
	path, err := BuildGesturePath(points, time.Duration(durationMs)*time.Millisecond)
	if err != nil {
		return errorEnvelope(err)
	}
	ok, err := DispatchGesture(ctx, svc, path)
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{
		"success":  ok,
		"startX":   coords["startX"],
		"startY":   coords["startY"],
		"endX":     coords["endX"],
		"endY":     coords["endY"],
		"duration": durationMs,
	}
}

func (r *Router) handleScroll(_ context.Context, p gjson.Result) Envelope {
	text, ok := strParam(p, "text")
	if !ok {
		return missingParam("text")
	}
	direction := "down"
	if d, okD := strParam(p, "direction"); okD {
		direction = d
	}
	var action NodeAction
	switch direction {
	case "down", "forward":
		action = ActionScrollForward
	case "up", "backward":
		action = ActionScrollBackward
	default:
		return Envelope{"error": "Invalid direction: " + direction}
	}
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	root, err := svc.RootNode()
	if err != nil {
		return errorEnvelope(err)
	}
	defer root.Recycle()

	node := FindByText(root, text, true)
	if node == nil {
		return Envelope{"success": false, "error": "Element not found: " + text}
	}
	if node != root {
		defer node.Recycle()
	}
	ok2 := PerformNodeAction(node, action, "")
	return Envelope{"success": ok2, "text": text, "direction": direction}
}

func (r *Router) globalActionHandler(action GlobalAction) handlerFunc {
	return func(_ context.Context, _ gjson.Result) Envelope {
		svc, err := r.bridge.service()
		if err != nil {
			return errorEnvelope(err)
		}
		ok := svc.GlobalAction(action)
		return Envelope{"success": ok, "action": action.String()}
	}
}

func (r *Router) handleCurrentApp(_ context.Context, _ gjson.Result) Envelope {
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	pkg, activity, err := svc.ForegroundApp()
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": true, "packageName": pkg, "activity": activity}
}

func (r *Router) handleScreenSize(_ context.Context, _ gjson.Result) Envelope {
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	w, h, err := svc.ScreenSize()
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": true, "width": w, "height": h}
}

func (r *Router) handleOpenApp(_ context.Context, p gjson.Result) Envelope {
	pkg, ok := strParam(p, "packageName")
	if !ok {
		return missingParam("packageName")
	}
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	if err := svc.LaunchPackage(pkg); err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": true, "packageName": pkg}
}

func (r *Router) handleOpenURL(_ context.Context, p gjson.Result) Envelope {
	url, ok := strParam(p, "url")
	if !ok {
		return missingParam("url")
	}
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	if err := svc.OpenURL(url); err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": true, "url": url}
}

func (r *Router) handleGesture(ctx context.Context, p gjson.Result) Envelope {
	raw := p.Get("points")
	if !raw.Exists() || !raw.IsArray() {
		return missingParam("points")
	}
	var points []GesturePoint
	valid := true
	raw.ForEach(func(_, el gjson.Result) bool {
		x, okX := numParam(el, "x")
		y, okY := numParam(el, "y")
		if !okX || !okY {
			valid = false
			return false
		}
		points = append(points, GesturePoint{X: x, Y: y})
		return true
	})
	if !valid {
		return Envelope{"error": "Invalid point in points: need numeric x and y"}
	}
	if len(points) < 2 {
		return Envelope{"error": "Need at least 2 points for a gesture"}
	}
	durationMs := intParam(p, "duration", 500)
	svc, err := r.bridge.service()
	if err != nil {
		return errorEnvelope(err)
	}
	path, err := BuildGesturePath(points, time.Duration(durationMs)*time.Millisecond)
	if err != nil {
		return errorEnvelope(err)
	}
	ok, err := DispatchGesture(ctx, svc, path)
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": ok, "points": len(points), "duration": durationMs}
}

func (r *Router) handleHistory(_ context.Context, p gjson.Result) Envelope {
	store := r.bridge.historyStore()
	if store == nil {
		return Envelope{"error": "command history not enabled"}
	}
	limit := intParam(p, "limit", 20)
	records, err := store.Tail(limit)
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{"success": true, "commands": records, "count": len(records)}
}
