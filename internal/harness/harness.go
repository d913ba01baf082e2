package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/wardrobe/internal/appearance"
	"github.com/roach88/wardrobe/internal/asset"
	"github.com/roach88/wardrobe/internal/avatar"
	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/manifest"
	"github.com/roach88/wardrobe/internal/testutil"
	"github.com/roach88/wardrobe/internal/wearable"
)

// maxSettleTicks bounds how long a step may keep the loop busy. Steps whose
// assets are withheld stop here and stay in flight for later steps.
const maxSettleTicks = 200

// world is one scenario's running system: the inventory built from the
// manifest, the manager, the avatar sink and the deterministic clocks.
type world struct {
	result   *Result
	clock    *engine.Clock
	wall     *testutil.FakeClock
	loop     *engine.Loop
	inv      *inventory.Model
	lib      *asset.Library
	res      *testutil.ScriptedResolver
	av       *avatar.Avatar
	m        *appearance.Manager
	wardrobe *manifest.Wardrobe
	withheld map[ir.ID]bool
	runs     []*appearance.Run
	logger   *slog.Logger
}

// argError marks a malformed step rather than an appearance failure.
type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func badArg(format string, args ...any) error {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

type actionFunc func(w *world, args ir.Object) (ir.Object, error)

var actions = map[string]actionFunc{
	"wear":             actWear,
	"wear_by_name":     actWearByName,
	"wear_item":        actWearItem,
	"wear_base":        actWearBase,
	"add":              actAdd,
	"remove":           actRemove,
	"remove_type":      actRemoveType,
	"move":             actMove,
	"save":             actSave,
	"save_as":          actSaveAs,
	"update":           actUpdate,
	"attach":           actAttach,
	"detach":           actDetach,
	"link_attachments": actLinkAttachments,
	"release":          actRelease,
	"fail":             actFail,
	"advance":          actAdvance,
	"shutdown":         actShutdown,
}

var snapshots = map[string]func(w *world) ir.Object{
	"avatar": snapAvatar,
	"outfit": snapOutfit,
	"cof":    snapCOF,
	"run":    snapRun,
}

// Run executes a scenario and returns its result.
//
// Each scenario gets a fresh inventory built from its manifest, an in-memory
// asset library and sequential ids, so the trace is identical on every run.
// Asset requests are answered from the library between loop ticks unless the
// scenario withholds them.
func Run(s *Scenario) (*Result, error) {
	w, err := newWorld(s)
	if err != nil {
		return nil, err
	}

	for i, step := range s.Flow {
		if err := w.step(i, step); err != nil {
			return nil, err
		}
	}

	for name, snap := range snapshots {
		w.result.State[name] = snap(w)
	}
	for _, msg := range EvaluateAssertions(w.result, s.Assertions) {
		w.result.AddError(msg)
	}
	return w.result, nil
}

func newWorld(s *Scenario) (*world, error) {
	m, errs := manifest.Load(s.Manifest, manifest.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load manifest: %w", errors.Join(errs...))
	}
	ids := ir.NewSequentialIDs()
	wardrobe, err := m.Build(ids)
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &world{
		result:   NewResult(),
		clock:    engine.NewClock(),
		wall:     testutil.NewFakeClock(),
		loop:     engine.NewLoop(engine.WithLogger(discard)),
		lib:      asset.NewLibrary(),
		res:      testutil.NewScriptedResolver(ids),
		wardrobe: wardrobe,
		withheld: make(map[ir.ID]bool),
		logger:   discard,
	}
	w.inv = inventory.NewModel(
		inventory.WithIDGenerator(ids),
		inventory.WithDispatcher(w.loop),
		inventory.WithLogger(discard),
	)
	if err := wardrobe.Install(context.Background(), w.inv, w.lib); err != nil {
		return nil, err
	}

	for _, key := range s.Withhold {
		assetID, err := w.assetOf(key)
		if err != nil {
			return nil, fmt.Errorf("withhold: %w", err)
		}
		w.withheld[assetID] = true
	}

	w.av = avatar.New(
		avatar.WithClock(w.clock),
		avatar.WithLoaded(!s.Options.NotLoaded),
		avatar.WithLogger(discard),
		avatar.WithHook(func(ev avatar.Event) {
			w.result.add(EventSink, ev.Kind, sinkArgs(ev), nil, ev.Seq)
		}),
	)

	opts := []appearance.Option{
		appearance.WithWallClock(w.wall),
		appearance.WithIDGenerator(ids),
		appearance.WithLogger(discard),
		appearance.WithNotifier(appearance.NotifierFunc(w.notice)),
		appearance.WithRunObserver(func(r *appearance.Run) { w.runs = append(w.runs, r) }),
	}
	o := s.Options
	if o.MaxClothingLayers > 0 {
		opts = append(opts, appearance.WithMaxClothingLayers(o.MaxClothingLayers))
	}
	if o.FetchTimeout > 0 {
		opts = append(opts, appearance.WithFetchTimeout(o.FetchTimeout))
	}
	if o.MissingTimeout > 0 {
		opts = append(opts, appearance.WithMissingTimeout(o.MissingTimeout))
	}
	if o.ForceAssetFail != "" {
		t, err := wearable.ParseType(o.ForceAssetFail)
		if err != nil {
			return nil, fmt.Errorf("force_asset_fail: %w", err)
		}
		opts = append(opts, appearance.WithForceAssetFail(t))
	}
	if o.AttachmentLinks != nil {
		opts = append(opts, appearance.WithAttachmentLinks(*o.AttachmentLinks))
	}
	w.m = appearance.NewManager(w.inv, w.res, w.loop, w.av, opts...)
	return w, nil
}

// step runs one flow action: invocation, action, settle, completion, expect.
func (w *world) step(i int, step Step) error {
	args, err := convertArgsToIRObject(step.Args)
	if err != nil {
		return fmt.Errorf("flow[%d] %s: %w", i, step.Action, err)
	}
	w.result.add(EventInvocation, step.Action, args, nil, w.clock.Next())

	prev := w.m.LastError()
	extra, err := actions[step.Action](w, args)
	var ae *argError
	if errors.As(err, &ae) {
		return fmt.Errorf("flow[%d] %s: %w", i, step.Action, err)
	}
	w.settle()
	if err == nil {
		if last := w.m.LastError(); last != nil && last != prev {
			err = last
		}
	}

	result := ir.Object{}
	if err != nil {
		result["error"] = ir.String(errorCode(err))
	} else {
		result["ok"] = ir.Bool(true)
		for k, v := range extra {
			result[k] = v
		}
	}
	w.result.add(EventCompletion, step.Action, nil, result, w.clock.Next())

	w.logger.Debug("flow step completed", "step", i, "action", step.Action, "error", err)
	w.checkExpect(i, step, err, result)
	return nil
}

func (w *world) checkExpect(i int, step Step, err error, result ir.Object) {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}
	got := ""
	if err != nil {
		got = errorCode(err)
	}
	if got != want {
		switch {
		case want == "":
			w.result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Action, err))
		case got == "":
			w.result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got success", i, step.Action, want))
		default:
			w.result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %s", i, step.Action, want, got))
		}
		return
	}

	if step.Expect == nil || len(step.Expect.Result) == 0 {
		return
	}
	expected, cerr := convertArgsToIRObject(step.Expect.Result)
	if cerr != nil {
		w.result.AddError(fmt.Sprintf("flow[%d] %s: expect.result: %v", i, step.Action, cerr))
		return
	}
	if !matchValue(result, expected) {
		w.result.AddError(fmt.Sprintf("flow[%d] %s: expected result %s, got %s",
			i, step.Action, formatValue(expected), formatValue(result)))
	}
}

// errorCode names err for the trace: its appearance code, or its message
// for anything else.
func errorCode(err error) string {
	if code := appearance.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

// settle ticks the loop, answering asset requests that are not withheld,
// until nothing is in flight or the tick budget runs out.
func (w *world) settle() {
	for i := 0; i < maxSettleTicks; i++ {
		w.loop.Tick()
		answered := w.answer()
		if answered == 0 && !w.m.Busy() && w.loop.Idle() {
			return
		}
	}
}

// answer resolves held requests from the library, or from the defaults
// recovery created, and fails requests for assets that exist nowhere.
func (w *world) answer() int {
	n := 0
	for _, req := range w.res.Pending() {
		if w.withheld[req.AssetID] {
			continue
		}
		payload, err := w.lib.FetchWearable(context.Background(), req.AssetID)
		if err != nil {
			payload = w.created(req.AssetID)
		}
		if payload == nil {
			n += w.res.Fail(req.AssetID)
			continue
		}
		n += w.res.Resolve(payload)
	}
	return n
}

func (w *world) created(assetID ir.ID) *wearable.Wearable {
	for _, c := range w.res.Created() {
		if c.AssetID == assetID {
			return c
		}
	}
	return nil
}

func (w *world) notice(n appearance.Notice) {
	var args ir.Object
	if len(n.Args) > 0 {
		args = make(ir.Object, len(n.Args))
		for k, v := range n.Args {
			args[k] = ir.String(v)
		}
	}
	w.result.add(EventNotice, n.Name, args, nil, w.clock.Next())
}

// sinkArgs flattens a sink event for the trace. Worn wearables become
// "type:name" labels so goldens do not depend on ids.
func sinkArgs(ev avatar.Event) ir.Object {
	if ev.Kind != avatar.EventWorn {
		return ev.Data
	}
	labels := ir.Array{}
	if entries, ok := ev.Data["wearables"].(ir.Array); ok {
		for _, e := range entries {
			obj, ok := e.(ir.Object)
			if !ok {
				continue
			}
			typ, _ := obj["type"].(ir.String)
			name, _ := obj["name"].(ir.String)
			labels = append(labels, ir.String(string(typ)+":"+string(name)))
		}
	}
	return ir.Object{"replace": ev.Data["replace"], "wearables": labels}
}

func (w *world) item(key string) (ir.ID, error) {
	id, ok := w.wardrobe.Items[key]
	if !ok {
		return ir.NilID, badArg("unknown item %q", key)
	}
	return id, nil
}

func (w *world) assetOf(key string) (ir.ID, error) {
	id, err := w.item(key)
	if err != nil {
		return ir.NilID, err
	}
	it, ok := w.inv.Item(id)
	if !ok || it.AssetID() == ir.NilID {
		return ir.NilID, badArg("item %q has no asset", key)
	}
	return it.AssetID(), nil
}

func (w *world) itemArg(args ir.Object) (ir.ID, error) {
	key, err := stringArg(args, "item")
	if err != nil {
		return ir.NilID, err
	}
	return w.item(key)
}

func stringArg(args ir.Object, key string) (string, error) {
	v, ok := args[key].(ir.String)
	if !ok || v == "" {
		return "", badArg("%s: string argument required", key)
	}
	return string(v), nil
}

func boolArg(args ir.Object, key string) bool {
	v, _ := args[key].(ir.Bool)
	return bool(v)
}

// boolArgOr is boolArg with a default for an absent key.
func boolArgOr(args ir.Object, key string, def bool) bool {
	if _, ok := args[key]; !ok {
		return def
	}
	return boolArg(args, key)
}

func actWear(w *world, args ir.Object) (ir.Object, error) {
	name, err := stringArg(args, "outfit")
	if err != nil {
		return nil, err
	}
	folder, ok := w.wardrobe.Outfits[name]
	if !ok {
		return nil, badArg("unknown outfit %q", name)
	}
	return nil, w.m.Reconcile(folder, boolArg(args, "append"))
}

func actWearByName(w *world, args ir.Object) (ir.Object, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	return nil, w.m.WearOutfitByName(name)
}

func actWearItem(w *world, args ir.Object) (ir.Object, error) {
	id, err := w.itemArg(args)
	if err != nil {
		return nil, err
	}
	return nil, w.m.WearItemOnAvatar(id, true, boolArgOr(args, "replace", true))
}

func actWearBase(w *world, _ ir.Object) (ir.Object, error) {
	return nil, w.m.WearBaseOutfit()
}

func actAdd(w *world, args ir.Object) (ir.Object, error) {
	id, err := w.itemArg(args)
	if err != nil {
		return nil, err
	}
	w.m.AddItemLink(id, boolArgOr(args, "update", true))
	return nil, nil
}

func actRemove(w *world, args ir.Object) (ir.Object, error) {
	id, err := w.itemArg(args)
	if err != nil {
		return nil, err
	}
	w.m.RemoveItemLinks(id, boolArgOr(args, "update", true))
	return nil, nil
}

func actRemoveType(w *world, args ir.Object) (ir.Object, error) {
	name, err := stringArg(args, "type")
	if err != nil {
		return nil, err
	}
	t, err := wearable.ParseType(name)
	if err != nil {
		return nil, badArg("type: %v", err)
	}
	w.m.RemoveLinksOfType(t, boolArgOr(args, "update", true))
	return nil, nil
}

func actMove(w *world, args ir.Object) (ir.Object, error) {
	id, err := w.itemArg(args)
	if err != nil {
		return nil, err
	}
	_, links := w.inv.CollectDescendants(w.m.COF(), inventory.LinkedItemIDMatches(id), false)
	if len(links) == 0 {
		return ir.Object{"moved": ir.Bool(false)}, nil
	}
	moved := w.m.MoveWearable(links[0].ID(), boolArg(args, "closer"))
	return ir.Object{"moved": ir.Bool(moved)}, nil
}

func actSave(w *world, _ ir.Object) (ir.Object, error) {
	return nil, w.m.UpdateBaseOutfit()
}

func actSaveAs(w *world, args ir.Object) (ir.Object, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	folder, err := w.m.MakeNewOutfitLinks(name)
	if err != nil {
		return nil, err
	}
	w.wardrobe.Outfits[name] = folder
	return nil, nil
}

func actUpdate(w *world, args ir.Object) (ir.Object, error) {
	_, err := w.m.UpdateAppearanceFromCOF(boolArg(args, "append"))
	return nil, err
}

func actAttach(w *world, args ir.Object) (ir.Object, error) {
	id, err := w.itemArg(args)
	if err != nil {
		return nil, err
	}
	w.m.RegisterAttachment(id)
	return nil, nil
}

func actDetach(w *world, args ir.Object) (ir.Object, error) {
	id, err := w.itemArg(args)
	if err != nil {
		return nil, err
	}
	w.m.UnregisterAttachment(id)
	return nil, nil
}

func actLinkAttachments(w *world, _ ir.Object) (ir.Object, error) {
	w.m.LinkRegisteredAttachments()
	return nil, nil
}

func actRelease(w *world, args ir.Object) (ir.Object, error) {
	key, err := stringArg(args, "item")
	if err != nil {
		return nil, err
	}
	assetID, err := w.assetOf(key)
	if err != nil {
		return nil, err
	}
	delete(w.withheld, assetID)
	return nil, nil
}

func actFail(w *world, args ir.Object) (ir.Object, error) {
	key, err := stringArg(args, "item")
	if err != nil {
		return nil, err
	}
	assetID, err := w.assetOf(key)
	if err != nil {
		return nil, err
	}
	delete(w.withheld, assetID)
	w.lib.Remove(assetID)
	n := w.res.Fail(assetID)
	return ir.Object{"failed": ir.Int(int64(n))}, nil
}

func actAdvance(w *world, args ir.Object) (ir.Object, error) {
	raw, err := stringArg(args, "by")
	if err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return nil, badArg("by: invalid duration %q", raw)
	}
	w.wall.Advance(d)
	return nil, nil
}

func actShutdown(w *world, _ ir.Object) (ir.Object, error) {
	w.m.Shutdown()
	return nil, nil
}

func wornLabels(worn []wearable.Worn) ir.Array {
	labels := make(ir.Array, 0, len(worn))
	for _, x := range worn {
		labels = append(labels, ir.String(x.Wearable.Type.String()+":"+x.Name))
	}
	return labels
}

func snapAvatar(w *world) ir.Object {
	return ir.Object{
		"worn":        wornLabels(w.av.Worn()),
		"attachments": ir.Strings(w.av.Attachments()),
		"gestures":    ir.Strings(w.av.ActiveGestures()),
	}
}

func snapOutfit(w *world) ir.Object {
	return ir.Object{
		"name":   ir.String(w.m.BaseOutfitName()),
		"dirty":  ir.Bool(w.m.IsOutfitDirty()),
		"locked": ir.Bool(w.m.IsOutfitLocked()),
	}
}

func snapCOF(w *world) ir.Object {
	base, hasBase := w.m.BaseOutfitLink()
	_, links := w.inv.CollectDescendants(w.m.COF(), inventory.IsLinkType, false)
	names := ir.Array{}
	for _, l := range links {
		if hasBase && l.ID() == base.ID() {
			continue
		}
		names = append(names, ir.String(l.Name()))
	}
	return ir.Object{
		"links": names,
		"count": ir.Int(int64(len(names))),
		"base":  ir.String(w.m.BaseOutfitName()),
	}
}

func snapRun(w *world) ir.Object {
	if len(w.runs) == 0 {
		return ir.Object{"phase": ir.String("none")}
	}
	r := w.runs[len(w.runs)-1]
	recovered := make([]string, 0, len(r.Recovered()))
	for _, t := range r.Recovered() {
		recovered = append(recovered, t.String())
	}
	issues := make([]string, 0, len(r.Issues()))
	for _, e := range r.Issues() {
		issues = append(issues, string(e.Code))
	}
	return ir.Object{
		"phase":     ir.String(r.Phase().String()),
		"timed_out": ir.Bool(r.TimedOut()),
		"released":  ir.Bool(r.Released()),
		"requested": ir.Int(int64(r.Requested())),
		"resolved":  ir.Int(int64(r.Resolved())),
		"recovered": ir.Strings(recovered),
		"issues":    ir.Strings(issues),
	}
}

// convertArgsToIRObject converts YAML-decoded args to an ir.Object.
func convertArgsToIRObject(args map[string]interface{}) (ir.Object, error) {
	if args == nil {
		return ir.Object{}, nil
	}

	result := make(ir.Object, len(args))
	for key, val := range args {
		irVal, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = irVal
	}
	return result, nil
}

// convertToIRValue converts a YAML-decoded value to an ir.Value. Nulls and
// non-integral numbers have no canonical form and are rejected.
func convertToIRValue(val interface{}) (ir.Value, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are not supported")
	}

	switch v := val.(type) {
	case string:
		return ir.String(v), nil
	case int:
		return ir.Int(int64(v)), nil
	case int64:
		return ir.Int(v), nil
	case float64:
		if v == float64(int64(v)) {
			return ir.Int(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are not supported: %v", v)
	case bool:
		return ir.Bool(v), nil
	case []interface{}:
		arr := make(ir.Array, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]interface{}:
		return convertArgsToIRObject(v)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return string(data)
}
