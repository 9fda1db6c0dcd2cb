package internal

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

// ChannelStatus is the connectivity of the push channel as shown to the operator
type ChannelStatus string

const (
	StatusOffline      ChannelStatus = "offline"
	StatusReconnecting ChannelStatus = "reconnecting"
	StatusOnline       ChannelStatus = "online"
)

// IntegrationState tracks the integration control
type IntegrationState string

const (
	IntegrationIdle        IntegrationState = "idle"
	IntegrationRunning     IntegrationState = "running"
	IntegrationCoolingDown IntegrationState = "cooling-down"
)

const (
	welcomeMessage     = "Connection to Command Deck established. Systems online."
	integrationStarted = "Initiating integration and playtest sequence..."

	detailOnline      = "Real-time link established."
	detailLost        = "Connection lost. Retrying..."
	detailError       = "Connection error."
	detailConnecting  = "Connecting..."
	detailReconnectFm = "Reconnecting (attempt %d)..."
)

// Recorder observes every appended message and every reconciled task
type Recorder interface {
	RecordMessage(agent AgentID, msg Message)
	RecordTask(task Task)
}

// TaskView is a task plus the flags the presentation layer acts on
type TaskView struct {
	Task
	AwaitingApproval bool
	Approving        bool
}

// View is an immutable snapshot of the session for the presentation layer
type View struct {
	Agents       []Agent
	Active       Agent
	Conversation []Message
	Typing       bool // a reply for the active agent is outstanding
	Tasks        []TaskView
	Status       ChannelStatus
	StatusDetail string
	Integration  IntegrationState
	Faults       int
}

// ControllerOptions configures a Controller
type ControllerOptions struct {
	IntegrationCooldown time.Duration
	Recorder            Recorder
	Now                 func() time.Time
}

// Controller owns the session state. All mutation happens on the goroutine running
// Run; other goroutines talk to it by posting actions.
type Controller struct {
	gateway  Gateway
	store    *ConversationStore
	tasks    *TaskReconciler
	recorder Recorder
	now      func() time.Time
	cooldown time.Duration

	active      AgentID
	status      ChannelStatus
	detail      string
	welcomed    bool
	pending     map[AgentID]bool
	approving   map[AssetID]bool
	integration IntegrationState
	faults      int

	inbox   chan action
	views   chan View
	stopped chan struct{}
	wg      sync.WaitGroup
}

// NewController creates a controller with an empty conversation for every department
func NewController(gw Gateway, opts ControllerOptions) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IntegrationCooldown == 0 {
		opts.IntegrationCooldown = DefaultIntegrationCooldown
	}
	tasks := NewTaskReconciler()
	tasks.now = opts.Now
	return &Controller{
		gateway:     gw,
		store:       NewConversationStore(Departments()),
		tasks:       tasks,
		recorder:    opts.Recorder,
		now:         opts.Now,
		cooldown:    opts.IntegrationCooldown,
		active:      AgentPM,
		status:      StatusOffline,
		detail:      detailConnecting,
		pending:     make(map[AgentID]bool),
		approving:   make(map[AssetID]bool),
		integration: IntegrationIdle,
		inbox:       make(chan action, 64),
		views:       make(chan View, 1),
		stopped:     make(chan struct{}),
	}
}

type action interface{}

type selectAgentAction struct{ id AgentID }
type submitAction struct{ text string }
type approveAction struct {
	id        AssetID
	assetType string
}
type integrateAction struct{}

type chatReplyAction struct {
	origin AgentID
	reply  ChatReply
	err    error
}
type approvalDoneAction struct {
	id     AssetID
	result ApprovalResult
	err    error
}
type integrationDoneAction struct {
	result IntegrationResult
	err    error
}
type cooldownElapsedAction struct{}

// SelectAgent switches the active conversation. Unknown or non-department ids are ignored.
func (c *Controller) SelectAgent(id AgentID) {
	c.post(selectAgentAction{id: id})
}

// Submit sends text to the active agent. Blank input returns ErrEmptyMessage and
// posts nothing.
func (c *Controller) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	c.post(submitAction{text: text})
	return nil
}

// Approve approves the asset of a completed task
func (c *Controller) Approve(id AssetID, assetType string) {
	c.post(approveAction{id: id, assetType: assetType})
}

// LaunchIntegration triggers the integration and playtest build
func (c *Controller) LaunchIntegration() {
	c.post(integrateAction{})
}

// Views streams snapshots; only the latest unread one is kept
func (c *Controller) Views() <-chan View {
	return c.views
}

func (c *Controller) post(a action) {
	select {
	case c.inbox <- a:
	case <-c.stopped:
	}
}

// Run processes actions and channel events one at a time until ctx is cancelled.
// channelEvents may be nil when no push channel is used.
func (c *Controller) Run(ctx context.Context, channelEvents <-chan ChannelEvent) error {
	defer c.wg.Wait()
	defer close(c.stopped)

	c.publish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case a := <-c.inbox:
			c.handle(ctx, a)
		case ev, ok := <-channelEvents:
			if !ok {
				channelEvents = nil
				continue
			}
			c.handleChannel(ev)
		}
		c.publish()
	}
}

func (c *Controller) handle(ctx context.Context, a action) {
	switch a := a.(type) {
	case selectAgentAction:
		c.selectAgent(a.id)
	case submitAction:
		c.submit(ctx, a.text)
	case approveAction:
		c.approve(ctx, a.id, a.assetType)
	case integrateAction:
		c.integrate(ctx)
	case chatReplyAction:
		c.chatReplied(a)
	case approvalDoneAction:
		c.approvalDone(a)
	case integrationDoneAction:
		c.integrationDone(ctx, a)
	case cooldownElapsedAction:
		c.integration = IntegrationIdle
	default:
		LogWarn("Ignoring unknown action %T", a)
	}
}

func (c *Controller) handleChannel(ev ChannelEvent) {
	switch ev := ev.(type) {
	case ChannelConnecting:
		if ev.Attempt > 1 {
			c.status = StatusReconnecting
			c.detail = fmt.Sprintf(detailReconnectFm, ev.Attempt)
		}
	case ChannelOpened:
		c.status = StatusOnline
		c.detail = detailOnline
		if !c.welcomed {
			c.welcomed = true
			c.appendMessage(AgentPM, NewMessage(RoleSystem, welcomeMessage, false, c.now()))
		}
	case ChannelClosed:
		c.status = StatusOffline
		c.detail = detailLost
		var terr *TransportError
		if errors.As(ev.Err, &terr) && terr.Op == "dial" {
			c.detail = detailError
		}
	case TaskFrame:
		update := c.tasks.Apply(ev.Event)
		if c.recorder != nil {
			c.recorder.RecordTask(update.Task)
		}
		LogDebug("Task %s -> %s (created=%t, awaiting approval=%t)",
			update.Task.AssetID, update.Task.Status, update.Created, update.AwaitingApproval)
	case ChannelFault:
		c.faults++
	}
}

func (c *Controller) selectAgent(id AgentID) {
	if !IsDepartment(id) {
		LogDebug("Ignoring selection of unknown agent %q", id)
		return
	}
	c.active = id
}

func (c *Controller) submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	origin := c.active
	if c.pending[origin] {
		LogWarn("A reply from %s is still outstanding, dropping submission", origin)
		return
	}

	history := c.store.Get(origin)
	c.appendMessage(origin, NewMessage(RoleUser, text, false, c.now()))
	c.pending[origin] = true

	c.spawn(ctx, func(ctx context.Context) action {
		reply, err := c.gateway.SendChatTurn(ctx, origin, text, history)
		return chatReplyAction{origin: origin, reply: reply, err: err}
	})
}

func (c *Controller) chatReplied(a chatReplyAction) {
	delete(c.pending, a.origin)
	if a.err != nil {
		LogWarn("Chat with %s failed: %v", a.origin, a.err)
		c.appendMessage(a.origin, errorMessage("Error", UserMessage(a.err), c.now()))
		return
	}
	switch a.reply.Kind {
	case ReplyMarkup:
		c.appendMessage(a.origin, NewMessage(RoleAgent, a.reply.Content, true, c.now()))
	default:
		c.appendMessage(a.origin, NewMessage(RoleAgent, a.reply.Content, false, c.now()))
	}
}

func (c *Controller) approve(ctx context.Context, id AssetID, assetType string) {
	task, ok := c.tasks.Get(id)
	if !ok {
		LogWarn("Cannot approve unknown task %s", id)
		return
	}
	if !task.AwaitingApproval() || c.approving[id] {
		LogDebug("Task %s is not awaiting approval", id)
		return
	}
	if assetType == "" {
		assetType = task.AssetType
	}
	if assetType == "" {
		assetType = DefaultAssetType
	}

	c.approving[id] = true
	c.spawn(ctx, func(ctx context.Context) action {
		result, err := c.gateway.ApproveAsset(ctx, id, assetType)
		return approvalDoneAction{id: id, result: result, err: err}
	})
}

func (c *Controller) approvalDone(a approvalDoneAction) {
	delete(c.approving, a.id)
	if a.err != nil {
		LogWarn("Approval of %s failed: %v", a.id, a.err)
		c.appendMessage(AgentPM, errorMessage("Error", UserMessage(a.err), c.now()))
		return
	}

	update, ok := c.tasks.MarkApproved(a.id)
	if ok && c.recorder != nil {
		c.recorder.RecordTask(update.Task)
	}
	name := a.result.TaskName
	if name == "" {
		name = update.Task.Name
	}
	if name == "" {
		name = string(a.id)
	}
	text := fmt.Sprintf("Asset %q (ID: %s) has been approved and moved to the project folder.", name, a.id)
	c.appendMessage(AgentPM, NewMessage(RoleSystem, text, false, c.now()))
}

func (c *Controller) integrate(ctx context.Context) {
	if c.integration != IntegrationIdle {
		LogDebug("Integration is %s, ignoring trigger", c.integration)
		return
	}
	c.integration = IntegrationRunning
	c.appendMessage(AgentPM, NewMessage(RoleSystem, integrationStarted, false, c.now()))

	c.spawn(ctx, func(ctx context.Context) action {
		result, err := c.gateway.TriggerIntegration(ctx)
		return integrationDoneAction{result: result, err: err}
	})
}

func (c *Controller) integrationDone(ctx context.Context, a integrationDoneAction) {
	if a.err != nil {
		LogWarn("Integration failed: %v", a.err)
		c.appendMessage(AgentPM, errorMessage("Integration Error", UserMessage(a.err), c.now()))
	} else {
		text := fmt.Sprintf("Integration successful! Moved %d assets. Emulator launched.", a.result.Moved())
		c.appendMessage(AgentPM, NewMessage(RoleSystem, text, false, c.now()))
	}

	c.integration = IntegrationCoolingDown
	cooldown := c.cooldown
	c.spawn(ctx, func(ctx context.Context) action {
		timer := time.NewTimer(cooldown)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return cooldownElapsedAction{}
	})
}

// spawn runs work off the loop and posts its result back to the inbox
func (c *Controller) spawn(ctx context.Context, work func(context.Context) action) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		a := work(ctx)
		select {
		case c.inbox <- a:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) appendMessage(agent AgentID, msg Message) {
	c.store.Append(agent, msg)
	if c.recorder != nil {
		c.recorder.RecordMessage(agent, msg)
	}
}

func errorMessage(label, text string, now time.Time) Message {
	content := fmt.Sprintf("<b>%s:</b> %s", label, html.EscapeString(text))
	return NewMessage(RoleError, content, true, now)
}

// view builds a snapshot of the current state
func (c *Controller) view() View {
	active, _ := LookupAgent(c.active)
	tasks := c.tasks.Snapshot()
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{
			Task:             t,
			AwaitingApproval: t.AwaitingApproval(),
			Approving:        c.approving[t.AssetID],
		})
	}
	return View{
		Agents:       Departments(),
		Active:       active,
		Conversation: c.store.Get(c.active),
		Typing:       c.pending[c.active],
		Tasks:        views,
		Status:       c.status,
		StatusDetail: c.detail,
		Integration:  c.integration,
		Faults:       c.faults,
	}
}

// publish replaces any unread snapshot with the current one
func (c *Controller) publish() {
	v := c.view()
	select {
	case <-c.views:
	default:
	}
	c.views <- v
}

// Transcripts returns every conversation for export. Call it after Run has returned.
func (c *Controller) Transcripts(sessionID string) []*Transcript {
	var out []*Transcript
	for _, agent := range c.store.Agents() {
		msgs := c.store.Get(agent)
		if len(msgs) == 0 {
			continue
		}
		out = append(out, NewTranscript(sessionID, agent, "live", msgs))
	}
	return out
}
