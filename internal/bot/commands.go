package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"floatwatch/internal/task/scheduler"
	"floatwatch/internal/tracker"
	"floatwatch/internal/transport/telegram/router"
	"floatwatch/pkg/tgui"
)

// Bot owns the tracker command handlers.
type Bot struct {
	tracker  *tracker.Service
	notifier Notifier
	sched    func() scheduler.Snapshot
	now      func() time.Time
}

// New wires the handlers. notifier and sched may be nil; /status then
// leaves their sections out.
func New(t *tracker.Service, n Notifier, sched func() scheduler.Snapshot) *Bot {
	return &Bot{tracker: t, notifier: n, sched: sched, now: time.Now}
}

func (b *Bot) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "track",
			Description: "Track listings matching a query",
			Usage:       `/track "<name>" <def_index> <paint_index> [key=value ...]`,
			Timeout:     30 * time.Second,
			Handle:      b.handleTrack,
		},
		{
			Name:        "untrack",
			Description: "Stop tracking a configuration",
			Usage:       `/untrack "<name>"`,
			Handle:      b.handleUntrack,
		},
		{
			Name:        "list_tracking",
			Aliases:     []string{"list", "ls"},
			Description: "List active tracking configurations",
			Usage:       "/list_tracking",
			Handle:      b.handleList,
		},
		{
			Name:        "test",
			Description: "Fetch listings once and show the first",
			Usage:       "/test <def_index> [paint_index] [limit] [sort_by]",
			Timeout:     30 * time.Second,
			Handle:      b.handleTest,
		},
		{
			Name:        "sort_options",
			Aliases:     []string{"sorts"},
			Description: "Show available sort options",
			Usage:       "/sort_options",
			Handle:      b.handleSortOptions,
		},
		{
			Name:        "status",
			Description: "Tracker and delivery status",
			Usage:       "/status",
			Handle:      b.handleStatus,
		},
	}
}

func usageErr(usage string, format string, args ...any) error {
	return fmt.Errorf("%w: %s\nusage: %s", tracker.ErrInvalidArgument, fmt.Sprintf(format, args...), usage)
}

// replyErr reports err to the chat and returns it for the audit trail.
func replyErr(ctx context.Context, req *router.Request, err error) error {
	var se *tracker.InvalidSortError
	var msg string
	switch {
	case errors.As(err, &se):
		valid := lo.Map(se.Valid(), func(o tracker.SortOption, _ int) string { return o.String() })
		msg = fmt.Sprintf("Invalid sort option '%s'. Valid options: %s", se.Value, strings.Join(valid, ", "))
	case errors.Is(err, tracker.ErrInvalidArgument):
		msg = strings.TrimPrefix(err.Error(), tracker.ErrInvalidArgument.Error()+": ")
	default:
		msg = "Error: " + err.Error()
	}
	_ = req.Reply(ctx, string("❌ "+tgui.Esc(msg)))
	return err
}

func parseInt(name, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, s)
	}
	return n, nil
}

func (b *Bot) handleTrack(ctx context.Context, req *router.Request) error {
	const usage = `/track "<name>" <def_index> <paint_index> [key=value ...]`
	args := req.RawArgs
	if len(args) < 3 {
		return replyErr(ctx, req, usageErr(usage, "missing arguments"))
	}
	def, err := parseInt("def_index", args[1])
	if err != nil {
		return replyErr(ctx, req, usageErr(usage, "%v", err))
	}
	paint, err := parseInt("paint_index", args[2])
	if err != nil {
		return replyErr(ctx, req, usageErr(usage, "%v", err))
	}

	res, err := b.tracker.Track(ctx, args[0], def, paint, args[3:], req.Chat)
	if err != nil {
		return replyErr(ctx, req, err)
	}

	lines := []tgui.H{
		"✅ " + tgui.B("Tracking Started"),
		"Now tracking " + tgui.B(res.Config.Name) + " items",
		"",
		tgui.B("Parameters"),
		tgui.Pre(paramsJSON(res.Config.Params)),
	}
	if res.Primed && res.PrimedCount > 0 {
		lines = append(lines, "", tgui.B("Initial Check"),
			tgui.Esc(fmt.Sprintf("Found %d existing listings (marked as seen)", res.PrimedCount)))
	}
	return req.Reply(ctx, string(tgui.JoinLines(lines...)))
}

func (b *Bot) handleUntrack(ctx context.Context, req *router.Request) error {
	name := strings.TrimSpace(strings.Join(req.RawArgs, " "))
	if name == "" {
		return replyErr(ctx, req, usageErr(`/untrack "<name>"`, "missing name"))
	}
	if b.tracker.Untrack(ctx, name) {
		return req.Reply(ctx, string("✅ Stopped tracking "+tgui.B(name)))
	}
	return req.Reply(ctx, string("❌ No tracking configuration found for "+tgui.B(name)))
}

func (b *Bot) handleList(ctx context.Context, req *router.Request) error {
	list := b.tracker.ListTracking()
	if len(list) == 0 {
		return req.Reply(ctx, "No items are currently being tracked.")
	}
	parts := []tgui.H{"📊 " + tgui.B("Active Tracking Configurations")}
	for _, c := range list {
		parts = append(parts, "", tgui.B(c.Name), tgui.Pre(paramsLines(c.Params)))
	}
	return req.Reply(ctx, string(tgui.JoinLines(parts...)))
}

func (b *Bot) handleTest(ctx context.Context, req *router.Request) error {
	const usage = "/test <def_index> [paint_index] [limit] [sort_by]"
	args := req.RawArgs
	if len(args) < 1 {
		return replyErr(ctx, req, usageErr(usage, "missing def_index"))
	}
	ints := [3]int64{}
	names := [3]string{"def_index", "paint_index", "limit"}
	for i := 0; i < 3 && i < len(args); i++ {
		n, err := parseInt(names[i], args[i])
		if err != nil {
			return replyErr(ctx, req, usageErr(usage, "%v", err))
		}
		ints[i] = n
	}
	sortBy := tracker.DefaultSort.String()
	if len(args) > 3 {
		sortBy = args[3]
	}

	res, err := b.tracker.TestFetch(ctx, ints[0], ints[1], ints[2], sortBy)
	if err != nil {
		return replyErr(ctx, req, err)
	}

	what := fmt.Sprintf("def_index %d", ints[0])
	if ints[1] != 0 {
		what += fmt.Sprintf(" paint_index %d", ints[1])
	}
	if !res.Fetch.OK() {
		return req.Reply(ctx, string("⚠️ "+tgui.Esc(fmt.Sprintf("Fetch failed for %s (http status %d)", what, res.Fetch.HTTPStatus))))
	}
	if res.First == nil {
		return req.Reply(ctx, string("❌ "+tgui.Esc("No listings found for "+what)))
	}
	if err := req.Reply(ctx, string("✅ "+tgui.Esc(fmt.Sprintf("Found %d listings for %s (sorted by %s)", len(res.Fetch.Listings), what, sortBy)))); err != nil {
		return err
	}
	return req.Reply(ctx, RenderNotification("Example listing:", *res.First))
}

func (b *Bot) handleSortOptions(ctx context.Context, req *router.Request) error {
	parts := []tgui.H{
		"🔄 " + tgui.B("Available Sort Options"),
		"Use these values for the " + tgui.Code("sort_by") + " parameter",
		"",
	}
	for _, o := range tracker.SortOptions() {
		parts = append(parts, "• "+tgui.Code(o.String())+" - "+tgui.Esc(o.Description()))
	}
	return req.Reply(ctx, string(tgui.JoinLines(parts...)))
}

func (b *Bot) handleStatus(ctx context.Context, req *router.Request) error {
	now := b.now()
	s := b.tracker.Snapshot()
	card := tgui.Card{Title: "📡 Status"}
	card.Add("Configs", strconv.Itoa(s.Configs)).
		Add("Destination", s.Destination.String()).
		Add("Seen listings", strconv.Itoa(s.Seen)).
		Add("Cycles", strconv.FormatUint(s.Poller.Cycles, 10)).
		Add("Skipped cycles", strconv.FormatUint(s.Poller.Skipped, 10)).
		Add("Fetches ok / degraded", fmt.Sprintf("%d / %d", s.Poller.FetchOK, s.Poller.FetchDegraded)).
		Add("New listings", strconv.FormatUint(s.Poller.New, 10)).
		Add("Queued / failed", fmt.Sprintf("%d / %d", s.Poller.Dispatched, s.Poller.DispatchFailed))
	if s.SeenEvicted > 0 {
		card.Add("Seen evicted", strconv.FormatUint(s.SeenEvicted, 10))
	}
	if last := s.Poller.Last; last != nil {
		card.Add("Last cycle", fmt.Sprintf("%s (%s, took %s)", ago(last.Started, now), last.ID, last.Took.Truncate(time.Millisecond)))
	} else {
		card.Add("Last cycle", "never")
	}
	if b.notifier != nil {
		ns := b.notifier.Stats()
		card.Add("Delivered / failed", fmt.Sprintf("%d / %d", ns.Sent, ns.Failed)).
			Add("Delivery queue", fmt.Sprintf("%d / %d (dropped %d)", ns.QueueLen, ns.QueueCap, ns.Dropped))
	}
	if b.sched != nil {
		for _, si := range b.sched().Schedules {
			v := "next " + si.Next.Format(time.TimeOnly)
			if si.LastErr != "" {
				v += ", last error: " + si.LastErr
			}
			card.Add("Task "+si.Name, v)
		}
	}
	return req.Reply(ctx, string(card.HTML()))
}
