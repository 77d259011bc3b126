package service

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/observability/notify"
)

// LeadServiceOptions groups dependencies for LeadService.
type LeadServiceOptions struct {
	Leads     core.LeadRepository
	Rules     core.LeadRuleRepository
	Evaluator core.RuleEvaluator
	// Notifier receives best-effort assignment notifications. May be nil.
	Notifier notify.Sink
	// SinkForURL builds a sink for rules that carry their own webhook URL.
	// May be nil, in which case Notifier handles every notification.
	SinkForURL func(webhookURL string) notify.Sink
	Logger     *slog.Logger
}

// LeadService ingests public lead submissions and routes them to staff.
type LeadService struct {
	leads      core.LeadRepository
	rules      core.LeadRuleRepository
	evaluator  core.RuleEvaluator
	notifier   notify.Sink
	sinkForURL func(string) notify.Sink
	logger     *slog.Logger
}

// NewLeadService constructs a new LeadService.
func NewLeadService(opts LeadServiceOptions) *LeadService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadService{
		leads:      opts.Leads,
		rules:      opts.Rules,
		evaluator:  opts.Evaluator,
		notifier:   opts.Notifier,
		sinkForURL: opts.SinkForURL,
		logger:     logger.With("component", "lead_service"),
	}
}

// Submit ingests a public lead: derives the source domain from the referrer,
// runs the enabled routing rules in priority order and assigns the lead to
// the first match. Rule evaluation failures skip the rule rather than reject
// the lead.
func (s *LeadService) Submit(ctx context.Context, req *model.CreateLeadRequest) (*model.Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := data.CreateLeadParams{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    req.Email,
		Message:  req.Message,
		CarID:    req.CarID,
		Referrer: req.Referrer,
		Status:   model.LeadStatusNew,
	}
	if req.Referrer != nil {
		if domain := sourceDomain(*req.Referrer); domain != "" {
			params.SourceDomain = &domain
		}
	}

	rule, err := s.route(ctx, &params)
	if err != nil {
		return nil, err
	}

	lead, err := s.leads.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	if rule != nil {
		s.logger.Info("lead assigned",
			"lead_id", lead.ID,
			"rule", rule.Name,
			"assigned_to", rule.AssignTo)
		s.notifyAssignment(ctx, lead, rule)
	}
	return lead, nil
}

// route finds the first enabled rule matching the lead document and mutates
// params with the assignment.
func (s *LeadService) route(ctx context.Context, params *data.CreateLeadParams) (*model.LeadRule, error) {
	rules, err := s.rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing routing rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	doc := leadDocument(params)
	for _, rule := range rules {
		matched, err := s.evaluator.Matches(rule.Expression, doc)
		if err != nil {
			s.logger.Warn("skipping routing rule",
				"rule", rule.Name,
				"error", err)
			continue
		}
		if matched {
			assignee := rule.AssignTo
			params.Status = model.LeadStatusAssigned
			params.AssignedTo = &assignee
			return rule, nil
		}
	}
	return nil, nil
}

// leadDocument is the shape routing expressions evaluate against.
func leadDocument(p *data.CreateLeadParams) map[string]any {
	doc := map[string]any{
		"full_name": p.FullName,
		"phone":     p.Phone,
	}
	setOpt := func(key string, v *string) {
		if v != nil {
			doc[key] = *v
		}
	}
	setOpt("email", p.Email)
	setOpt("message", p.Message)
	setOpt("car_id", p.CarID)
	setOpt("referrer", p.Referrer)
	setOpt("source_domain", p.SourceDomain)
	return doc
}

func (s *LeadService) notifyAssignment(ctx context.Context, lead *model.Lead, rule *model.LeadRule) {
	sink := s.notifier
	if rule.WebhookURL != nil && s.sinkForURL != nil {
		sink = s.sinkForURL(*rule.WebhookURL)
	}
	if sink == nil {
		return
	}

	event := notify.Event{
		Kind:       notify.KindLeadAssigned,
		Title:      fmt.Sprintf("Lead from %s assigned to %s", lead.FullName, rule.AssignTo),
		OccurredAt: time.Now().UTC(),
		Metadata: map[string]string{
			"lead_id": lead.ID,
			"rule":    rule.Name,
			"phone":   lead.Phone,
		},
	}
	if lead.SourceDomain != nil {
		event.Metadata["source"] = *lead.SourceDomain
	}
	if err := sink.Send(ctx, event); err != nil {
		s.logger.Warn("lead assignment notification failed",
			"lead_id", lead.ID,
			"error", err)
	}
}

// sourceDomain reduces a referrer URL to its registrable domain, e.g.
// "https://deals.example.co.uk/cars/42" becomes "example.co.uk". Returns ""
// when the referrer has no usable host.
func sourceDomain(referrer string) string {
	u, err := url.Parse(strings.TrimSpace(referrer))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Bare hostnames like localhost have no public suffix; keep the host.
		return host
	}
	return domain
}

// GetByID retrieves a lead by ID.
func (s *LeadService) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	return s.leads.GetByID(ctx, id)
}

// List returns leads matching the options.
func (s *LeadService) List(ctx context.Context, opts model.LeadsListOptions) ([]*model.Lead, error) {
	return s.leads.List(ctx, opts)
}

// Update updates a lead's status or assignee.
func (s *LeadService) Update(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.leads.Update(ctx, id, req)
}

// Delete deletes a lead.
func (s *LeadService) Delete(ctx context.Context, id string) (bool, error) {
	return s.leads.Delete(ctx, id)
}

// CreateRule validates the expression syntax and stores a routing rule.
func (s *LeadService) CreateRule(ctx context.Context, req *model.CreateLeadRuleRequest) (*model.LeadRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.evaluator.CheckSyntax(req.Expression); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	return s.rules.Create(ctx, req)
}

// GetRule retrieves a routing rule by ID.
func (s *LeadService) GetRule(ctx context.Context, id string) (*model.LeadRule, error) {
	return s.rules.GetByID(ctx, id)
}

// ListRules returns all routing rules, enabled or not.
func (s *LeadService) ListRules(ctx context.Context) ([]*model.LeadRule, error) {
	return s.rules.ListAll(ctx)
}

// SetRuleEnabled toggles a routing rule.
func (s *LeadService) SetRuleEnabled(ctx context.Context, id string, enabled bool) (*model.LeadRule, error) {
	return s.rules.SetEnabled(ctx, id, enabled)
}

// DeleteRule deletes a routing rule.
func (s *LeadService) DeleteRule(ctx context.Context, id string) (bool, error) {
	return s.rules.Delete(ctx, id)
}
