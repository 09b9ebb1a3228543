package service

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"
)

var wizardTracer = otel.Tracer("service/wizard")

const (
	maxAttachmentBytes = 10 << 20
	maxLineItems       = 30
	maxComponents      = 10
)

// WizardService holds one quote draft per gateway session and walks it
// through the composition steps: prescription attachment, compound line
// items, delivery address, submission. The draft lives only in memory; a
// failed submission keeps it intact so the user can retry without retyping.
type WizardService struct {
	upstream port.UpstreamQuotes
	sessions port.SessionStore
	logger   *zap.Logger

	mu     sync.Mutex
	drafts map[string]*domain.QuoteDraft
}

func NewWizardService(upstream port.UpstreamQuotes, sessions port.SessionStore, logger *zap.Logger) *WizardService {
	return &WizardService{
		upstream: upstream,
		sessions: sessions,
		logger:   logger,
		drafts:   make(map[string]*domain.QuoteDraft),
	}
}

// Len reports how many drafts are currently held. Exported for the active
// drafts gauge.
func (s *WizardService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Start creates a fresh draft for the session, replacing any existing one.
func (s *WizardService) Start(sid string) (*domain.QuoteDraft, error) {
	if _, err := requireSession(s.sessions, sid); err != nil {
		return nil, err
	}

	now := time.Now()
	draft := &domain.QuoteDraft{
		ID:           uuid.NewString(),
		State:        domain.DraftCollectingAttachment,
		LineItems:    []domain.LineItemDraft{},
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.drafts[sid] = draft
	s.mu.Unlock()

	s.logger.Info("quote draft started", zap.String("session_id", sid), zap.String("draft_id", draft.ID))
	return snapshot(draft), nil
}

// Current returns the session's draft.
func (s *WizardService) Current(sid string) (*domain.QuoteDraft, error) {
	if _, err := requireSession(s.sessions, sid); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[sid]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "quote draft", ID: sid}
	}
	return snapshot(draft), nil
}

// Cancel discards the session's draft. Idempotent.
func (s *WizardService) Cancel(sid string) error {
	if _, err := requireSession(s.sessions, sid); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.drafts, sid)
	s.mu.Unlock()
	return nil
}

// SetAttachment stores the prescription upload on the draft.
func (s *WizardService) SetAttachment(sid string, att *domain.PrescriptionAttachment) (*domain.QuoteDraft, error) {
	if att == nil || len(att.Data) == 0 {
		return nil, &domain.ErrValidation{Field: "prescription", Message: "Anexe a receita médica"}
	}
	if len(att.Data) > maxAttachmentBytes {
		return nil, &domain.ErrValidation{Field: "prescription", Message: "Arquivo da receita é muito grande"}
	}
	if !validAttachmentType(att.ContentType) {
		return nil, &domain.ErrValidation{Field: "prescription", Message: "Formato de arquivo não suportado"}
	}

	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		d.Attachment = att
		if d.State == domain.DraftCollectingAttachment {
			d.State = domain.DraftCollectingLineItems
		}
		return nil
	})
}

// AddLineItem appends a compound entry to the draft.
func (s *WizardService) AddLineItem(sid string, item domain.LineItemDraft) (*domain.QuoteDraft, error) {
	if err := validateLineItem(&item); err != nil {
		return nil, err
	}
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		if d.State == domain.DraftCollectingAttachment {
			return &domain.ErrConflict{Message: "Anexe a receita antes de adicionar itens"}
		}
		if len(d.LineItems) >= maxLineItems {
			return &domain.ErrValidation{Field: "items", Message: "Número máximo de itens atingido"}
		}
		d.LineItems = append(d.LineItems, item)
		return nil
	})
}

// UpdateLineItem replaces the entry at index.
func (s *WizardService) UpdateLineItem(sid string, index int, item domain.LineItemDraft) (*domain.QuoteDraft, error) {
	if err := validateLineItem(&item); err != nil {
		return nil, err
	}
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		if index < 0 || index >= len(d.LineItems) {
			return &domain.ErrNotFound{Resource: "line item", ID: strconv.Itoa(index)}
		}
		d.LineItems[index] = item
		return nil
	})
}

// RemoveLineItem drops the entry at index.
func (s *WizardService) RemoveLineItem(sid string, index int) (*domain.QuoteDraft, error) {
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		if index < 0 || index >= len(d.LineItems) {
			return &domain.ErrNotFound{Resource: "line item", ID: strconv.Itoa(index)}
		}
		d.LineItems = append(d.LineItems[:index], d.LineItems[index+1:]...)
		// Dropping the last item can only happen while still collecting, so
		// no state rewind is needed.
		return nil
	})
}

// AddComponent appends an additional component to the line item at itemIndex.
func (s *WizardService) AddComponent(sid string, itemIndex int, comp domain.ComponentDraft) (*domain.QuoteDraft, error) {
	if err := validateComponent(&comp); err != nil {
		return nil, err
	}
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		item, err := lineItemAt(d, itemIndex)
		if err != nil {
			return err
		}
		if len(item.AdditionalComponents) >= maxComponents {
			return &domain.ErrValidation{Field: "additionalComponents", Message: "Número máximo de componentes atingido"}
		}
		item.AdditionalComponents = append(item.AdditionalComponents, comp)
		return nil
	})
}

// UpdateComponent replaces the component at compIndex of the line item at
// itemIndex.
func (s *WizardService) UpdateComponent(sid string, itemIndex, compIndex int, comp domain.ComponentDraft) (*domain.QuoteDraft, error) {
	if err := validateComponent(&comp); err != nil {
		return nil, err
	}
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		item, err := lineItemAt(d, itemIndex)
		if err != nil {
			return err
		}
		if compIndex < 0 || compIndex >= len(item.AdditionalComponents) {
			return &domain.ErrNotFound{Resource: "additional component", ID: strconv.Itoa(compIndex)}
		}
		item.AdditionalComponents[compIndex] = comp
		return nil
	})
}

// RemoveComponent drops the component at compIndex of the line item at
// itemIndex.
func (s *WizardService) RemoveComponent(sid string, itemIndex, compIndex int) (*domain.QuoteDraft, error) {
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		item, err := lineItemAt(d, itemIndex)
		if err != nil {
			return err
		}
		if compIndex < 0 || compIndex >= len(item.AdditionalComponents) {
			return &domain.ErrNotFound{Resource: "additional component", ID: strconv.Itoa(compIndex)}
		}
		item.AdditionalComponents = append(item.AdditionalComponents[:compIndex], item.AdditionalComponents[compIndex+1:]...)
		return nil
	})
}

// Advance moves the draft to the next collection step once the current step
// is complete. A draft already at the address step with an address set stays
// put; Submit is the only way forward from there.
func (s *WizardService) Advance(sid string) (*domain.QuoteDraft, error) {
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		switch d.State {
		case domain.DraftCollectingAttachment:
			if d.Attachment == nil {
				return &domain.ErrValidation{Field: "prescription", Message: "Anexe a receita médica"}
			}
			d.State = domain.DraftCollectingLineItems
		case domain.DraftCollectingLineItems:
			if len(d.LineItems) == 0 {
				return &domain.ErrValidation{Field: "items", Message: "Adicione ao menos um item"}
			}
			d.State = domain.DraftCollectingAddress
		case domain.DraftCollectingAddress:
			// Terminal collection step.
		}
		return nil
	})
}

// SetAddress stores the delivery address and moves the draft past the
// address step once items exist.
func (s *WizardService) SetAddress(sid string, addr domain.AddressDraft) (*domain.QuoteDraft, error) {
	if err := validateAddress(&addr); err != nil {
		return nil, err
	}
	return s.update(sid, func(d *domain.QuoteDraft) error {
		if err := editable(d); err != nil {
			return err
		}
		if len(d.LineItems) == 0 {
			return &domain.ErrConflict{Message: "Adicione ao menos um item antes do endereço"}
		}
		d.Address = &addr
		d.State = domain.DraftCollectingAddress
		return nil
	})
}

// Submit assembles the draft into the upstream multipart form and posts it.
// On success the draft is discarded; on failure it is kept, flagged failed,
// and carries the error message so a later retry starts from complete state.
func (s *WizardService) Submit(ctx context.Context, sid string) error {
	ctx, span := wizardTracer.Start(ctx, "WizardService.Submit")
	defer span.End()

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return err
	}

	s.mu.Lock()
	draft, ok := s.drafts[sid]
	if !ok {
		s.mu.Unlock()
		return &domain.ErrNotFound{Resource: "quote draft", ID: sid}
	}
	if draft.State == domain.DraftSubmitting {
		s.mu.Unlock()
		return &domain.ErrConflict{Message: "Envio já em andamento"}
	}
	if err := submittable(draft); err != nil {
		s.mu.Unlock()
		return err
	}
	draft.State = domain.DraftSubmitting
	draft.LastActivity = time.Now()
	body, contentType, buildErr := buildQuoteForm(draft)
	s.mu.Unlock()

	if buildErr != nil {
		s.failDraft(sid, buildErr)
		return buildErr
	}

	span.SetAttributes(attribute.Int("draft.items", len(draft.LineItems)))

	if err := s.upstream.CreateQuote(ctx, sess.Token, body, contentType); err != nil {
		err = invalidateOnAuthErr(s.sessions, s.logger, sid, err)
		s.failDraft(sid, err)
		return err
	}

	s.mu.Lock()
	delete(s.drafts, sid)
	s.mu.Unlock()

	s.logger.Info("quote submitted",
		zap.String("session_id", sid),
		zap.String("draft_id", draft.ID),
		zap.Int("items", len(draft.LineItems)))
	return nil
}

// SweepIdle drops drafts with no activity for longer than idle. Wired to the
// scheduler; returns how many were removed.
func (s *WizardService) SweepIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for sid, draft := range s.drafts {
		if draft.LastActivity.Before(cutoff) && draft.State != domain.DraftSubmitting {
			delete(s.drafts, sid)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("idle quote drafts swept", zap.Int("removed", removed))
	}
	return removed
}

func (s *WizardService) update(sid string, fn func(*domain.QuoteDraft) error) (*domain.QuoteDraft, error) {
	if _, err := requireSession(s.sessions, sid); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[sid]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "quote draft", ID: sid}
	}
	if err := fn(draft); err != nil {
		return nil, err
	}
	draft.LastActivity = time.Now()
	return snapshot(draft), nil
}

func (s *WizardService) failDraft(sid string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft, ok := s.drafts[sid]; ok {
		draft.State = domain.DraftFailed
		draft.LastError = cause.Error()
		draft.LastActivity = time.Now()
	}
}

// editable rejects edits once a submission is in flight. A failed draft is
// editable again so the user can fix whatever upstream rejected.
func editable(d *domain.QuoteDraft) error {
	if d.State == domain.DraftSubmitting {
		return &domain.ErrConflict{Message: "Envio em andamento, aguarde"}
	}
	if d.State == domain.DraftFailed {
		d.State = draftResumeState(d)
		d.LastError = ""
	}
	return nil
}

func draftResumeState(d *domain.QuoteDraft) domain.DraftState {
	switch {
	case d.Attachment == nil:
		return domain.DraftCollectingAttachment
	case len(d.LineItems) == 0:
		return domain.DraftCollectingLineItems
	default:
		return domain.DraftCollectingAddress
	}
}

func submittable(d *domain.QuoteDraft) error {
	if d.Attachment == nil {
		return &domain.ErrValidation{Field: "prescription", Message: "Anexe a receita médica"}
	}
	if len(d.LineItems) == 0 {
		return &domain.ErrValidation{Field: "items", Message: "Adicione ao menos um item"}
	}
	if d.Address == nil {
		return &domain.ErrValidation{Field: "address", Message: "Informe o endereço de entrega"}
	}
	return nil
}

func validAttachmentType(ct string) bool {
	switch strings.ToLower(ct) {
	case "image/jpeg", "image/png", "image/webp", "application/pdf":
		return true
	}
	return false
}

func validateLineItem(item *domain.LineItemDraft) error {
	item.MainCompoundName = strings.TrimSpace(item.MainCompoundName)
	if item.MainCompoundName == "" {
		return &domain.ErrValidation{Field: "mainCompoundName", Message: "Informe o composto principal"}
	}
	if item.TotalQuantity <= 0 {
		return &domain.ErrValidation{Field: "totalQuantity", Message: "Quantidade deve ser maior que zero"}
	}
	if item.ConcentrationValue < 0 {
		return &domain.ErrValidation{Field: "concentrationValue", Message: "Concentração não pode ser negativa"}
	}
	if len(item.AdditionalComponents) > maxComponents {
		return &domain.ErrValidation{Field: "additionalComponents", Message: "Número máximo de componentes atingido"}
	}
	for j := range item.AdditionalComponents {
		comp := &item.AdditionalComponents[j]
		comp.ActiveIngredientName = strings.TrimSpace(comp.ActiveIngredientName)
		if comp.ActiveIngredientName == "" {
			return &domain.ErrValidation{
				Field:   fmt.Sprintf("additionalComponents[%d].activeIngredientName", j),
				Message: "Informe o princípio ativo",
			}
		}
	}
	return nil
}

func validateComponent(comp *domain.ComponentDraft) error {
	comp.ActiveIngredientName = strings.TrimSpace(comp.ActiveIngredientName)
	if comp.ActiveIngredientName == "" {
		return &domain.ErrValidation{Field: "activeIngredientName", Message: "Informe o princípio ativo"}
	}
	if comp.ConcentrationValue < 0 {
		return &domain.ErrValidation{Field: "concentrationValue", Message: "Concentração não pode ser negativa"}
	}
	return nil
}

func lineItemAt(d *domain.QuoteDraft, index int) (*domain.LineItemDraft, error) {
	if index < 0 || index >= len(d.LineItems) {
		return nil, &domain.ErrNotFound{Resource: "line item", ID: strconv.Itoa(index)}
	}
	return &d.LineItems[index], nil
}

func validateAddress(addr *domain.AddressDraft) error {
	addr.ZipCode = domain.FormatZipCode(addr.ZipCode)
	addr.PhoneNumber = domain.FormatPhone(addr.PhoneNumber)

	switch {
	case strings.TrimSpace(addr.Street) == "":
		return &domain.ErrValidation{Field: "street", Message: "Informe a rua"}
	case strings.TrimSpace(addr.Number) == "":
		return &domain.ErrValidation{Field: "number", Message: "Informe o número"}
	case strings.TrimSpace(addr.Neighborhood) == "":
		return &domain.ErrValidation{Field: "neighborhood", Message: "Informe o bairro"}
	case strings.TrimSpace(addr.City) == "":
		return &domain.ErrValidation{Field: "city", Message: "Informe a cidade"}
	case strings.TrimSpace(addr.State) == "":
		return &domain.ErrValidation{Field: "state", Message: "Informe o estado"}
	case !domain.ValidZipCode(addr.ZipCode):
		return &domain.ErrValidation{Field: "zipCode", Message: "CEP inválido"}
	case addr.PhoneNumber != "" && !domain.ValidPhone(addr.PhoneNumber):
		return &domain.ErrValidation{Field: "phoneNumber", Message: "Telefone inválido"}
	}
	return nil
}

// buildQuoteForm flattens the draft into the multipart form the upstream
// quote endpoint expects: the prescription file plus indexed bracket fields
// like Items[0].MainCompoundName and
// Items[0].AdditionalComponents[1].ActiveIngredientName.
func buildQuoteForm(d *domain.QuoteDraft) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("prescription", d.Attachment.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("assembling quote form: %w", err)
	}
	if _, err := part.Write(d.Attachment.Data); err != nil {
		return nil, "", fmt.Errorf("assembling quote form: %w", err)
	}

	fields := map[string]string{
		"Address.Street":       d.Address.Street,
		"Address.Number":       d.Address.Number,
		"Address.Complement":   d.Address.Complement,
		"Address.Neighborhood": d.Address.Neighborhood,
		"Address.City":         d.Address.City,
		"Address.State":        d.Address.State,
		"Address.ZipCode":      d.Address.ZipCode,
		"Address.PhoneNumber":  d.Address.PhoneNumber,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("assembling quote form: %w", err)
		}
	}

	for i, item := range d.LineItems {
		prefix := fmt.Sprintf("Items[%d].", i)
		itemFields := []struct {
			name, value string
		}{
			{"MainCompoundName", item.MainCompoundName},
			{"PharmaceuticalForm", item.PharmaceuticalForm},
			{"ConcentrationValue", formatFloat(item.ConcentrationValue)},
			{"ConcentrationUnit", item.ConcentrationUnit},
			{"TotalQuantity", strconv.Itoa(item.TotalQuantity)},
			{"QuantityUnit", item.QuantityUnit},
			{"Observation", item.Observation},
		}
		for _, f := range itemFields {
			if f.value == "" {
				continue
			}
			if err := w.WriteField(prefix+f.name, f.value); err != nil {
				return nil, "", fmt.Errorf("assembling quote form: %w", err)
			}
		}
		for j, comp := range item.AdditionalComponents {
			cp := fmt.Sprintf("%sAdditionalComponents[%d].", prefix, j)
			compFields := []struct {
				name, value string
			}{
				{"ActiveIngredientName", comp.ActiveIngredientName},
				{"ConcentrationValue", formatFloat(comp.ConcentrationValue)},
				{"ConcentrationUnit", comp.ConcentrationUnit},
			}
			for _, f := range compFields {
				if f.value == "" {
					continue
				}
				if err := w.WriteField(cp+f.name, f.value); err != nil {
					return nil, "", fmt.Errorf("assembling quote form: %w", err)
				}
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("assembling quote form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// snapshot copies the draft so callers cannot mutate the stored state.
// Attachment bytes are shared; they are immutable once set.
func snapshot(d *domain.QuoteDraft) *domain.QuoteDraft {
	cp := *d
	cp.LineItems = make([]domain.LineItemDraft, len(d.LineItems))
	copy(cp.LineItems, d.LineItems)
	for i := range cp.LineItems {
		comps := make([]domain.ComponentDraft, len(cp.LineItems[i].AdditionalComponents))
		copy(comps, cp.LineItems[i].AdditionalComponents)
		cp.LineItems[i].AdditionalComponents = comps
	}
	if d.Address != nil {
		addr := *d.Address
		cp.Address = &addr
	}
	return &cp
}
