package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

func newWizard(up *fakeUpstream, sessions *fakeSessions) *service.WizardService {
	return service.NewWizardService(up, sessions, testLogger())
}

func attachment() *domain.PrescriptionAttachment {
	return &domain.PrescriptionAttachment{
		Filename:    "receita.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xFF, 0xD8, 0xFF},
	}
}

func metformina() domain.LineItemDraft {
	return domain.LineItemDraft{
		MainCompoundName:   "Metformina",
		PharmaceuticalForm: "Comprimido",
		ConcentrationValue: 500,
		ConcentrationUnit:  "mg",
		TotalQuantity:      30,
		QuantityUnit:       "un",
	}
}

func address() domain.AddressDraft {
	return domain.AddressDraft{
		Street:       "Rua das Flores",
		Number:       "123",
		Neighborhood: "Centro",
		City:         "São Paulo",
		State:        "SP",
		ZipCode:      "12345-678",
	}
}

// completeDraft walks a fresh draft through every step up to submittable.
func completeDraft(t *testing.T, svc *service.WizardService, sid string) {
	t.Helper()
	if _, err := svc.Start(sid); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetAttachment(sid, attachment()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddLineItem(sid, metformina()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetAddress(sid, address()); err != nil {
		t.Fatal(err)
	}
}

func TestWizard_StartState(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)

	draft, err := svc.Start(sid)
	if err != nil {
		t.Fatal(err)
	}
	if draft.State != domain.DraftCollectingAttachment {
		t.Errorf("state = %q", draft.State)
	}
	if draft.ID == "" {
		t.Error("draft needs an id")
	}
	if svc.Len() != 1 {
		t.Errorf("Len = %d", svc.Len())
	}
}

func TestWizard_StartRequiresSession(t *testing.T) {
	svc := newWizard(newFakeUpstream(), newFakeSessions())

	_, err := svc.Start("ghost")
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestWizard_AttachmentMovesToLineItems(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)

	svc.Start(sid)
	draft, err := svc.SetAttachment(sid, attachment())
	if err != nil {
		t.Fatal(err)
	}
	if draft.State != domain.DraftCollectingLineItems {
		t.Errorf("state = %q", draft.State)
	}
}

func TestWizard_AttachmentValidation(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)

	var validation *domain.ErrValidation

	if _, err := svc.SetAttachment(sid, nil); !errors.As(err, &validation) {
		t.Errorf("nil attachment: got %v", err)
	}
	if _, err := svc.SetAttachment(sid, &domain.PrescriptionAttachment{
		Filename: "x.exe", ContentType: "application/octet-stream", Data: []byte{1},
	}); !errors.As(err, &validation) {
		t.Errorf("bad content type: got %v", err)
	}
}

func TestWizard_ItemBeforeAttachmentRejected(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)

	_, err := svc.AddLineItem(sid, metformina())
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestWizard_LineItemValidation(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)
	svc.SetAttachment(sid, attachment())

	var validation *domain.ErrValidation

	item := metformina()
	item.MainCompoundName = "   "
	if _, err := svc.AddLineItem(sid, item); !errors.As(err, &validation) {
		t.Errorf("blank compound: got %v", err)
	}

	item = metformina()
	item.TotalQuantity = 0
	if _, err := svc.AddLineItem(sid, item); !errors.As(err, &validation) {
		t.Errorf("zero quantity: got %v", err)
	}

	item = metformina()
	item.AdditionalComponents = []domain.ComponentDraft{{ActiveIngredientName: ""}}
	if _, err := svc.AddLineItem(sid, item); !errors.As(err, &validation) {
		t.Errorf("blank component: got %v", err)
	}
}

func TestWizard_EditAndRemoveLineItems(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)
	svc.SetAttachment(sid, attachment())
	svc.AddLineItem(sid, metformina())

	edited := metformina()
	edited.TotalQuantity = 60
	draft, err := svc.UpdateLineItem(sid, 0, edited)
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.LineItems) != 1 || draft.LineItems[0].TotalQuantity != 60 {
		t.Errorf("edit must replace in place: %+v", draft.LineItems)
	}

	if _, err := svc.UpdateLineItem(sid, 5, edited); err == nil {
		t.Error("out-of-range edit must fail")
	}

	draft, err = svc.RemoveLineItem(sid, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.LineItems) != 0 {
		t.Errorf("items = %v", draft.LineItems)
	}
}

func TestWizard_ComponentOps(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)
	svc.SetAttachment(sid, attachment())
	svc.AddLineItem(sid, metformina())

	draft, err := svc.AddComponent(sid, 0, domain.ComponentDraft{
		ActiveIngredientName: "Glibenclamida",
		ConcentrationValue:   5,
		ConcentrationUnit:    "mg",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.LineItems[0].AdditionalComponents) != 1 {
		t.Fatalf("components = %v", draft.LineItems[0].AdditionalComponents)
	}

	draft, err = svc.UpdateComponent(sid, 0, 0, domain.ComponentDraft{
		ActiveIngredientName: "Glibenclamida",
		ConcentrationValue:   10,
		ConcentrationUnit:    "mg",
	})
	if err != nil {
		t.Fatal(err)
	}
	if draft.LineItems[0].AdditionalComponents[0].ConcentrationValue != 10 {
		t.Error("component edit must replace in place")
	}

	draft, err = svc.RemoveComponent(sid, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(draft.LineItems[0].AdditionalComponents) != 0 {
		t.Error("component not removed")
	}
}

func TestWizard_AddressValidation(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)
	svc.SetAttachment(sid, attachment())
	svc.AddLineItem(sid, metformina())

	var validation *domain.ErrValidation

	bad := address()
	bad.ZipCode = "1310-100"
	if _, err := svc.SetAddress(sid, bad); !errors.As(err, &validation) {
		t.Errorf("short CEP: got %v", err)
	}

	bad = address()
	bad.Street = ""
	if _, err := svc.SetAddress(sid, bad); !errors.As(err, &validation) {
		t.Errorf("blank street: got %v", err)
	}

	// Raw digits are formatted before validation, so "12345678" passes.
	ok := address()
	ok.ZipCode = "12345678"
	draft, err := svc.SetAddress(sid, ok)
	if err != nil {
		t.Fatalf("raw digits CEP should format and pass: %v", err)
	}
	if draft.Address.ZipCode != "12345-678" {
		t.Errorf("zip = %q", draft.Address.ZipCode)
	}
	if draft.State != domain.DraftCollectingAddress {
		t.Errorf("state = %q", draft.State)
	}
}

func TestWizard_SubmitBuildsMultipartForm(t *testing.T) {
	up := newFakeUpstream()
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(up, sessions)

	completeDraft(t, svc, sid)
	item := metformina()
	item.AdditionalComponents = []domain.ComponentDraft{{
		ActiveIngredientName: "Glibenclamida",
		ConcentrationValue:   5,
		ConcentrationUnit:    "mg",
	}}
	svc.UpdateLineItem(sid, 0, item)

	if err := svc.Submit(context.Background(), sid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, params, err := mime.ParseMediaType(up.lastCreate.contentType)
	if err != nil {
		t.Fatalf("bad content type %q: %v", up.lastCreate.contentType, err)
	}
	reader := multipart.NewReader(bytes.NewReader(up.lastCreate.body), params["boundary"])

	fields := map[string]string{}
	var fileField, fileName string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			fileField = part.FormName()
			fileName = part.FileName()
			continue
		}
		fields[part.FormName()] = string(data)
	}

	if fileField != "prescription" || fileName != "receita.jpg" {
		t.Errorf("file part = %q / %q", fileField, fileName)
	}
	if fields["Items[0].MainCompoundName"] != "Metformina" {
		t.Errorf("Items[0].MainCompoundName = %q", fields["Items[0].MainCompoundName"])
	}
	if fields["Items[0].TotalQuantity"] != "30" {
		t.Errorf("Items[0].TotalQuantity = %q", fields["Items[0].TotalQuantity"])
	}
	if fields["Items[0].AdditionalComponents[0].ActiveIngredientName"] != "Glibenclamida" {
		t.Errorf("nested component key missing: %v", fields)
	}
	if fields["Address.ZipCode"] != "12345-678" {
		t.Errorf("Address.ZipCode = %q", fields["Address.ZipCode"])
	}
	for name := range fields {
		if strings.Contains(strings.ToLower(name), "confirm") {
			t.Errorf("extraneous field leaked: %q", name)
		}
	}

	// Success discards the draft.
	if _, err := svc.Current(sid); err == nil {
		t.Error("draft must be discarded after submission")
	}
	if svc.Len() != 0 {
		t.Errorf("Len = %d", svc.Len())
	}
}

func TestWizard_SubmitIncomplete(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)

	err := svc.Submit(context.Background(), sid)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWizard_FailedSubmitPreservesDraft(t *testing.T) {
	up := newFakeUpstream()
	up.createErr = &domain.ErrExternalService{Service: "pharmacy-api", Err: errors.New("boom")}
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(up, sessions)

	completeDraft(t, svc, sid)
	if err := svc.Submit(context.Background(), sid); err == nil {
		t.Fatal("expected submit failure")
	}

	draft, err := svc.Current(sid)
	if err != nil {
		t.Fatalf("draft must survive a failed submit: %v", err)
	}
	if draft.State != domain.DraftFailed {
		t.Errorf("state = %q", draft.State)
	}
	if draft.LastError == "" {
		t.Error("failure message must be retained")
	}
	if len(draft.LineItems) != 1 || draft.Address == nil || draft.Attachment == nil {
		t.Error("draft content lost on failure")
	}

	// Retry without re-entering data.
	up.createErr = nil
	if err := svc.Submit(context.Background(), sid); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestWizard_FailedSubmitOn401ClearsSession(t *testing.T) {
	up := newFakeUpstream()
	up.createErr = &domain.ErrUpstreamAuth{}
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "stale", domain.RoleCustomer)
	svc := newWizard(up, sessions)

	completeDraft(t, svc, sid)
	err := svc.Submit(context.Background(), sid)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok := sessions.Load(sid); ok {
		t.Fatal("upstream 401 must clear the session pair")
	}
}

func TestWizard_CancelDiscards(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)

	svc.Start(sid)
	if err := svc.Cancel(sid); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Current(sid); err == nil {
		t.Error("draft must be gone after cancel")
	}

	// Cancel with no draft is fine.
	if err := svc.Cancel(sid); err != nil {
		t.Errorf("cancel must be idempotent: %v", err)
	}
}

func TestWizard_Advance(t *testing.T) {
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)
	svc.Start(sid)

	// Cannot advance past the attachment step empty-handed.
	if _, err := svc.Advance(sid); err == nil {
		t.Fatal("expected advance to fail without attachment")
	}

	svc.SetAttachment(sid, attachment())
	if _, err := svc.Advance(sid); err == nil {
		t.Fatal("expected advance to fail without items")
	}

	svc.AddLineItem(sid, metformina())
	draft, err := svc.Advance(sid)
	if err != nil {
		t.Fatal(err)
	}
	if draft.State != domain.DraftCollectingAddress {
		t.Errorf("state = %q", draft.State)
	}
}

func TestWizard_SweepIdle(t *testing.T) {
	sessions := newFakeSessions()
	sidOld := sessions.seed("sid-old", "bearer", domain.RoleCustomer)
	sidNew := sessions.seed("sid-new", "bearer", domain.RoleCustomer)
	svc := newWizard(newFakeUpstream(), sessions)

	svc.Start(sidOld)
	time.Sleep(30 * time.Millisecond)
	svc.Start(sidNew)

	removed := svc.SweepIdle(20 * time.Millisecond)
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if _, err := svc.Current(sidOld); err == nil {
		t.Error("stale draft must be swept")
	}
	if _, err := svc.Current(sidNew); err != nil {
		t.Errorf("fresh draft must survive: %v", err)
	}
}
