// Package invest implements the four-step investment wizard and the
// contract generation pipeline behind step three.
package invest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/storage"
	"github.com/shopspring/decimal"
)

// Step is a wizard state.
type Step int

const (
	StepTemplate Step = iota + 1
	StepTerms
	StepGenerate
	StepDeposit
)

func (s Step) String() string {
	switch s {
	case StepTemplate:
		return "Select template"
	case StepTerms:
		return "Investment terms"
	case StepGenerate:
		return "Generate contract"
	case StepDeposit:
		return "Deposit"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Wizard walks one investment from template selection to deposit. It owns
// the terms and bundle it produces. A Wizard is not safe for concurrent use.
type Wizard struct {
	templates []domain.Template
	pipeline  *Pipeline
	now       func() time.Time

	step     Step
	selected *domain.Template
	terms    *domain.Terms
	bundle   *Bundle
	progress *Progress
}

// NewWizard starts a wizard over templates.
func NewWizard(templates []domain.Template, pipeline *Pipeline) *Wizard {
	return &Wizard{
		templates: templates,
		pipeline:  pipeline,
		now:       time.Now,
		step:      StepTemplate,
		progress:  NewProgress(),
	}
}

func (w *Wizard) Step() Step                   { return w.step }
func (w *Wizard) Templates() []domain.Template { return w.templates }
func (w *Wizard) Progress() *Progress          { return w.progress }
func (w *Wizard) Bundle() *Bundle              { return w.bundle }

// Selected returns the chosen template.
func (w *Wizard) Selected() (domain.Template, bool) {
	if w.selected == nil {
		return domain.Template{}, false
	}
	return *w.selected, true
}

// Terms returns the accepted terms.
func (w *Wizard) Terms() (domain.Terms, bool) {
	if w.terms == nil {
		return domain.Terms{}, false
	}
	return *w.terms, true
}

// SelectTemplate picks a template in step 1. Picking a different template
// discards anything built from the previous one.
func (w *Wizard) SelectTemplate(id string) error {
	if w.step != StepTemplate {
		return ErrWrongStep
	}
	t, err := domain.FindTemplate(w.templates, id)
	if err != nil {
		return err
	}
	if w.selected == nil || w.selected.ID != t.ID {
		w.terms = nil
		w.bundle = nil
	}
	w.selected = &t
	return nil
}

// Next advances one step when the current step's artifact exists.
func (w *Wizard) Next() error {
	switch w.step {
	case StepTemplate:
		if w.selected == nil {
			return ErrNoTemplate
		}
	case StepTerms:
		if w.terms == nil {
			return ErrNoTerms
		}
	case StepGenerate:
		if !w.bundle.Complete() {
			return ErrBundleNotReady
		}
	default:
		return ErrWrongStep
	}
	w.step++
	return nil
}

// Previous goes back one step. Leaving step 3 discards the terms and bundle
// since the terms are about to be re-entered.
func (w *Wizard) Previous() error {
	if w.step <= StepTemplate {
		return ErrWrongStep
	}
	if w.step == StepGenerate {
		w.terms = nil
		w.bundle = nil
		w.progress.reset()
	}
	w.step--
	return nil
}

// Reset returns to step 1, discarding terms and bundle.
func (w *Wizard) Reset() {
	w.step = StepTemplate
	w.selected = nil
	w.terms = nil
	w.bundle = nil
	w.progress.reset()
}

// SubmitTerms validates the step-2 form and, on success, records immutable
// terms for investor on network and advances to step 3. On failure nothing
// is recorded and the wizard stays on step 2.
func (w *Wizard) SubmitTerms(in TermsInput, investor, network string) (domain.Terms, error) {
	if w.step != StepTerms {
		return domain.Terms{}, ErrWrongStep
	}
	if strings.TrimSpace(investor) == "" {
		return domain.Terms{}, &ValidationError{Field: "investor", Msg: "Connect a wallet before entering terms"}
	}
	amount, apy, err := ValidateTerms(*w.selected, in)
	if err != nil {
		return domain.Terms{}, err
	}
	t := domain.Terms{
		Template:     *w.selected,
		Amount:       amount,
		Term:         in.Term,
		TargetAPY:    apy,
		SpecialTerms: strings.TrimSpace(in.SpecialTerms),
		Investor:     investor,
		Network:      network,
		CreatedAt:    w.now().UTC(),
	}
	w.terms = &t
	w.bundle = nil
	w.step = StepGenerate
	return t, nil
}

// Generate runs the pipeline from scratch. On failure the bundle stays
// unset and the wizard stays on step 3.
func (w *Wizard) Generate(ctx context.Context) (*Bundle, error) {
	if w.step != StepGenerate {
		return nil, ErrWrongStep
	}
	w.bundle = nil
	b, err := w.pipeline.Run(ctx, *w.terms, w.progress)
	if err != nil {
		return nil, err
	}
	w.bundle = b
	return b, nil
}

// Summary is what step 4 shows before the deposit.
type Summary struct {
	TemplateName   string
	Principal      decimal.Decimal
	Term           string
	APY            decimal.Decimal
	ExpectedReturn decimal.Decimal
	DocumentHash   string
	StorageLocator string
	StorageIsDemo  bool
	DocumentSizeKB int
}

// Summary builds the step-4 summary.
func (w *Wizard) Summary() (Summary, error) {
	if w.step != StepDeposit {
		return Summary{}, ErrWrongStep
	}
	t := w.bundle.Terms
	return Summary{
		TemplateName:   t.Template.Name,
		Principal:      t.Amount,
		Term:           t.Term,
		APY:            t.TargetAPY,
		ExpectedReturn: domain.ExpectedReturn(t.Amount, t.TargetAPY),
		DocumentHash:   w.bundle.DocumentHash,
		StorageLocator: w.bundle.StorageLocator,
		StorageIsDemo:  w.bundle.StorageIsDemo,
		DocumentSizeKB: w.bundle.DocumentSizeKB,
	}, nil
}

// Preview returns something the user can open: the rendered PDF written
// under dir, or the gateway URL for the stored content when no local
// document exists.
func Preview(b *Bundle, dir, gateway string) (string, error) {
	if b == nil {
		return "", ErrBundleNotReady
	}
	if len(b.Document) > 0 {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
		id := strings.TrimPrefix(b.DocumentHash, "0x")
		if len(id) > 12 {
			id = id[:12]
		}
		path := filepath.Join(dir, "contract-"+id+".pdf")
		if err := os.WriteFile(path, b.Document, 0o600); err != nil {
			return "", err
		}
		return path, nil
	}
	if b.StorageURL != "" {
		return b.StorageURL, nil
	}
	if u := storage.GatewayURL(gateway, b.StorageLocator); u != "" {
		return u, nil
	}
	return "", fmt.Errorf("nothing to preview")
}
