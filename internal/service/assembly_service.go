package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/llm"
	"copro-smart-go/pkg/log"
)

// AssemblyService manages general assemblies and everything attached to them.
type AssemblyService interface {
	List(ctx context.Context) ([]model.Assembly, error)
	ListByCopropriete(ctx context.Context, coproprieteID string) ([]model.Assembly, error)
	Get(ctx context.Context, id string) (*model.Assembly, error)
	Create(ctx context.Context, in AssemblyInput) (*model.Assembly, error)
	Update(ctx context.Context, id string, in AssemblyInput) (*model.Assembly, error)
	Delete(ctx context.Context, id string) error

	AddAgendaItem(ctx context.Context, assemblyID string, in AgendaItemInput) (*model.AgendaItem, error)
	UpdateAgendaItem(ctx context.Context, assemblyID, itemID string, in AgendaItemInput) (*model.AgendaItem, error)
	DeleteAgendaItem(ctx context.Context, assemblyID, itemID string) error
	AddDecision(ctx context.Context, assemblyID string, d *model.Decision) (*model.Decision, error)
	AddAttendee(ctx context.Context, assemblyID string, a *model.Attendee) (*model.Attendee, error)
	AddDocument(ctx context.Context, assemblyID string, d *model.AssemblyDocument) (*model.AssemblyDocument, error)

	GenerateMinutes(ctx context.Context, id string) (*model.Assembly, error)
	Statistics(ctx context.Context, id string) (*AssemblyStatistics, error)
}

// AssemblyInput is the body of create and patch requests.
type AssemblyInput struct {
	Date          *time.Time `json:"date"`
	Type          *string    `json:"type"`
	Status        *string    `json:"status"`
	Title         *string    `json:"title"`
	Location      *string    `json:"location"`
	Minutes       *string    `json:"minutes"`
	CoproprietyID *string    `json:"copropriety_id"`
}

// AgendaItemInput is the body of agenda item requests.
type AgendaItemInput struct {
	Order        *int    `json:"order"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	RequiresVote *bool   `json:"requiresVote"`
	Status       *string `json:"status"`
	VoteType     *string `json:"voteType"`
}

// AssemblyStatistics summarises attendance and votes of an assembly.
type AssemblyStatistics struct {
	TotalAttendees      int     `json:"totalAttendees"`
	PresentCount        int     `json:"presentCount"`
	ProxyCount          int     `json:"proxyCount"`
	ParticipationRate   float64 `json:"participationRate"`
	VotingRate          float64 `json:"votingRate"`
	ApprovedResolutions int     `json:"approvedResolutions"`
	TotalResolutions    int     `json:"totalResolutions"`
}

var (
	assemblyTypes    = []string{"ordinary", "extraordinary"}
	assemblyStatuses = []string{"upcoming", "completed", "cancelled"}
	agendaStatuses   = []string{"pending", "approved", "rejected", "postponed"}
	voteTypes        = []string{"art24", "art25", "art26"}
	decisionResults  = []string{model.DecisionApproved, model.DecisionRejected, model.DecisionPostponed}
	voteValues       = []string{"for", "against", "abstention"}
	attendeeRoles    = []string{"owner", "tenant", "representative"}
	documentTypes    = []string{"pdf", "docx", "txt", "image"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

type assemblyService struct {
	repo      repository.AssemblyRepository
	llmClient llm.Client
	cfg       config.ChatConfig
}

// NewAssemblyService creates an AssemblyService. llmClient is only used for
// minutes when cfg.MinutesWithLLM is set.
func NewAssemblyService(repo repository.AssemblyRepository, llmClient llm.Client, cfg config.ChatConfig) AssemblyService {
	if cfg.Language == "" {
		cfg.Language = "French"
	}
	return &assemblyService{repo: repo, llmClient: llmClient, cfg: cfg}
}

func (s *assemblyService) List(ctx context.Context) ([]model.Assembly, error) {
	return s.repo.FindAll(ctx)
}

func (s *assemblyService) ListByCopropriete(ctx context.Context, coproprieteID string) ([]model.Assembly, error) {
	return s.repo.FindByCopropriete(ctx, coproprieteID)
}

func (s *assemblyService) Get(ctx context.Context, id string) (*model.Assembly, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "assembly", "find assembly")
	}
	return a, nil
}

func (s *assemblyService) Create(ctx context.Context, in AssemblyInput) (*model.Assembly, error) {
	if in.Date == nil {
		return nil, apperr.Validation("date is required")
	}
	if in.Type == nil || in.Status == nil {
		return nil, apperr.Validation("type and status are required")
	}
	if in.CoproprietyID == nil || strings.TrimSpace(*in.CoproprietyID) == "" {
		return nil, apperr.Validation("copropriety_id is required")
	}
	a := &model.Assembly{}
	if err := applyAssembly(a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assembly: %w", err)
	}
	return a, nil
}

func (s *assemblyService) Update(ctx context.Context, id string, in AssemblyInput) (*model.Assembly, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAssembly(a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update assembly: %w", err)
	}
	return a, nil
}

func applyAssembly(a *model.Assembly, in AssemblyInput) error {
	if in.Type != nil {
		if !oneOf(*in.Type, assemblyTypes) {
			return apperr.Validation("type must be ordinary or extraordinary")
		}
		a.Type = *in.Type
	}
	if in.Status != nil {
		if !oneOf(*in.Status, assemblyStatuses) {
			return apperr.Validation("status must be upcoming, completed or cancelled")
		}
		a.Status = *in.Status
	}
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Location != nil {
		a.Location = *in.Location
	}
	if in.Minutes != nil {
		a.Minutes = *in.Minutes
	}
	if in.CoproprietyID != nil {
		a.CoproprietyID = strings.TrimSpace(*in.CoproprietyID)
	}
	return nil
}

func (s *assemblyService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "assembly", "delete assembly")
	}
	return nil
}

func (s *assemblyService) AddAgendaItem(ctx context.Context, assemblyID string, in AgendaItemInput) (*model.AgendaItem, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if _, err := s.Get(ctx, assemblyID); err != nil {
		return nil, err
	}
	item := &model.AgendaItem{AssemblyID: assemblyID}
	if err := applyAgendaItem(item, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAgendaItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create agenda item: %w", err)
	}
	return item, nil
}

func (s *assemblyService) UpdateAgendaItem(ctx context.Context, assemblyID, itemID string, in AgendaItemInput) (*model.AgendaItem, error) {
	if _, err := s.Get(ctx, assemblyID); err != nil {
		return nil, err
	}
	item, err := s.repo.FindAgendaItem(ctx, assemblyID, itemID)
	if err != nil {
		return nil, notFoundOr(err, "agenda item", "find agenda item")
	}
	if err := applyAgendaItem(item, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAgendaItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update agenda item: %w", err)
	}
	return item, nil
}

func applyAgendaItem(item *model.AgendaItem, in AgendaItemInput) error {
	if in.Status != nil {
		if !oneOf(*in.Status, agendaStatuses) {
			return apperr.Validation("unknown agenda item status %q", *in.Status)
		}
		item.Status = *in.Status
	}
	if in.VoteType != nil {
		if *in.VoteType == "" {
			item.VoteType = nil
		} else if !oneOf(*in.VoteType, voteTypes) {
			return apperr.Validation("voteType must be art24, art25 or art26")
		} else {
			vt := *in.VoteType
			item.VoteType = &vt
		}
	}
	if in.Order != nil {
		item.Order = *in.Order
	}
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.RequiresVote != nil {
		item.RequiresVote = *in.RequiresVote
	}
	return nil
}

func (s *assemblyService) DeleteAgendaItem(ctx context.Context, assemblyID, itemID string) error {
	if _, err := s.Get(ctx, assemblyID); err != nil {
		return err
	}
	if err := s.repo.DeleteAgendaItem(ctx, assemblyID, itemID); err != nil {
		return notFoundOr(err, "agenda item", "delete agenda item")
	}
	return nil
}

func (s *assemblyService) AddDecision(ctx context.Context, assemblyID string, d *model.Decision) (*model.Decision, error) {
	if strings.TrimSpace(d.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if !oneOf(d.Result, decisionResults) {
		return nil, apperr.Validation("result must be approved, rejected or postponed")
	}
	if d.VotesFor < 0 || d.VotesAgainst < 0 || d.Abstentions < 0 {
		return nil, apperr.Validation("vote counts must not be negative")
	}
	for _, v := range d.Voters {
		if !oneOf(v.Vote, voteValues) {
			return nil, apperr.Validation("vote must be for, against or abstention")
		}
	}
	if _, err := s.Get(ctx, assemblyID); err != nil {
		return nil, err
	}
	d.ID = ""
	d.AssemblyID = assemblyID
	if err := s.repo.CreateDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("create decision: %w", err)
	}
	return d, nil
}

func (s *assemblyService) AddAttendee(ctx context.Context, assemblyID string, a *model.Attendee) (*model.Attendee, error) {
	if strings.TrimSpace(a.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if !oneOf(a.Role, attendeeRoles) {
		return nil, apperr.Validation("role must be owner, tenant or representative")
	}
	if _, err := s.Get(ctx, assemblyID); err != nil {
		return nil, err
	}
	a.ID = ""
	a.AssemblyID = assemblyID
	if err := s.repo.CreateAttendee(ctx, a); err != nil {
		return nil, fmt.Errorf("create attendee: %w", err)
	}
	return a, nil
}

func (s *assemblyService) AddDocument(ctx context.Context, assemblyID string, d *model.AssemblyDocument) (*model.AssemblyDocument, error) {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.URL) == "" {
		return nil, apperr.Validation("name and url are required")
	}
	if !oneOf(d.Type, documentTypes) {
		return nil, apperr.Validation("type must be pdf, docx, txt or image")
	}
	if _, err := s.Get(ctx, assemblyID); err != nil {
		return nil, err
	}
	d.ID = ""
	d.AssemblyID = assemblyID
	if err := s.repo.CreateDocument(ctx, d); err != nil {
		return nil, fmt.Errorf("create assembly document: %w", err)
	}
	return d, nil
}

func (s *assemblyService) Statistics(ctx context.Context, id string) (*AssemblyStatistics, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return computeStatistics(a), nil
}

func computeStatistics(a *model.Assembly) *AssemblyStatistics {
	stats := &AssemblyStatistics{
		TotalAttendees:   len(a.Attendees),
		TotalResolutions: len(a.Decisions),
	}
	for _, at := range a.Attendees {
		if at.Present {
			stats.PresentCount++
		}
		if at.ProxyName != "" {
			stats.ProxyCount++
		}
	}
	if stats.TotalAttendees > 0 {
		stats.ParticipationRate = float64(stats.PresentCount) / float64(stats.TotalAttendees) * 100
	}
	votes := 0
	for _, d := range a.Decisions {
		votes += d.VotesFor + d.VotesAgainst + d.Abstentions
		if d.Result == model.DecisionApproved {
			stats.ApprovedResolutions++
		}
	}
	if stats.TotalResolutions > 0 {
		stats.VotingRate = float64(votes) / float64(stats.TotalResolutions)
	}
	return stats
}

var minutesTemplate = template.Must(template.New("minutes").Parse(
	`PROCES-VERBAL - {{.Title}}
Assemblee generale {{.Type}} du {{.Date.Format "02/01/2006 15:04"}}{{if .Location}}
Lieu : {{.Location}}{{end}}

Participants ({{len .Attendees}}) :
{{range .Attendees}}- {{.Name}} ({{.Role}}){{if .Present}} present{{else}} absent{{end}}{{if .ProxyName}}, represente par {{.ProxyName}}{{end}}
{{else}}- aucun participant enregistre
{{end}}
Ordre du jour :
{{range .Agenda}}{{.Order}}. {{.Title}}{{if .Description}} : {{.Description}}{{end}} [{{.Status}}]
{{else}}- aucun point
{{end}}
Resolutions :
{{range .Decisions}}- {{.Title}} : {{.Result}} (pour {{.VotesFor}}, contre {{.VotesAgainst}}, abstentions {{.Abstentions}})
{{else}}- aucune resolution
{{end}}`))

// renderMinutes fills the minutes template for a.
func renderMinutes(a *model.Assembly) (string, error) {
	var buf bytes.Buffer
	if err := minutesTemplate.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *assemblyService) GenerateMinutes(ctx context.Context, id string) (*model.Assembly, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	draft, err := renderMinutes(a)
	if err != nil {
		return nil, fmt.Errorf("render minutes: %w", err)
	}

	a.Minutes = draft
	if s.cfg.MinutesWithLLM && s.llmClient != nil {
		prompt := []llm.Message{
			{Role: "system", Content: fmt.Sprintf(
				"You write the minutes of co-ownership general assemblies. Rewrite the draft below as formal minutes in %s. "+
					"Keep every name, figure and resolution. Do not use markdown.", s.cfg.Language)},
			{Role: "user", Content: draft},
		}
		rewritten, err := s.llmClient.Complete(ctx, prompt, nil)
		if err != nil {
			log.Warnf("[AssemblyService] minutes rewrite failed for %s, keeping the draft: %v", id, err)
		} else if strings.TrimSpace(rewritten) != "" {
			a.Minutes = strings.TrimSpace(rewritten)
		}
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("save minutes: %w", err)
	}
	return a, nil
}
