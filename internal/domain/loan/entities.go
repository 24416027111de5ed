package loan

import (
	"strings"
	"time"

	"equity-lending/internal/domain/eligibility"
	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/quote"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusInReview  Status = "IN_REVIEW"
	StatusActive    Status = "ACTIVE"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// SnapshotVersion is bumped whenever the shape of the stored snapshots changes.
const SnapshotVersion = 1

const MaxIdempotencyKeyLen = 100

var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusInReview, StatusRejected, StatusActive},
	StatusInReview:  {StatusRejected, StatusActive},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// QuoteInputs records what the caller asked for when the snapshot was taken.
type QuoteInputs struct {
	quote.Request
	AsOfDate time.Time `json:"as_of_date"`
}

// Table: loan_applications
type LoanApplication struct {
	ID           string `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	OrgID        string `gorm:"column:org_id;type:char(32);not null;index" json:"org_id"`
	MembershipID string `gorm:"column:membership_id;type:char(32);not null;index:idx_loan_apps_membership;uniqueIndex:ux_loan_apps_create_key,priority:1;uniqueIndex:ux_loan_apps_submit_key,priority:1" json:"membership_id"`
	Status       Status `gorm:"column:status;size:20;not null;index" json:"status"`
	Version      int64  `gorm:"column:version;not null;default:1" json:"version"`

	CreateIdempotencyKey *string `gorm:"column:create_idempotency_key;size:100;uniqueIndex:ux_loan_apps_create_key,priority:2" json:"-"`
	SubmitIdempotencyKey *string `gorm:"column:submit_idempotency_key;size:100;uniqueIndex:ux_loan_apps_submit_key,priority:2" json:"-"`

	SelectionMode                  quote.SelectionMode    `gorm:"column:selection_mode;size:10;not null" json:"selection_mode"`
	SelectionValue                 decimal.Decimal        `gorm:"column:selection_value;type:decimal(18,6);not null" json:"selection_value"`
	AsOfDate                       time.Time              `gorm:"column:as_of_date;type:date;not null" json:"as_of_date"`
	SharesToExercise               int64                  `gorm:"column:shares_to_exercise;not null" json:"shares_to_exercise"`
	TotalExercisableSharesSnapshot int64                  `gorm:"column:total_exercisable_shares_snapshot;not null" json:"total_exercisable_shares_snapshot"`
	PurchasePrice                  decimal.Decimal        `gorm:"column:purchase_price;type:decimal(18,2);not null" json:"purchase_price"`
	DownPaymentAmount              decimal.Decimal        `gorm:"column:down_payment_amount;type:decimal(18,2);not null" json:"down_payment_amount"`
	LoanPrincipal                  decimal.Decimal        `gorm:"column:loan_principal;type:decimal(18,2);not null" json:"loan_principal"`
	InterestType                   policy.InterestType    `gorm:"column:interest_type;size:20;not null" json:"interest_type"`
	RepaymentMethod                policy.RepaymentMethod `gorm:"column:repayment_method;size:32;not null" json:"repayment_method"`
	TermMonths                     int                    `gorm:"column:term_months;not null" json:"term_months"`
	NominalAnnualRatePercent       decimal.Decimal        `gorm:"column:nominal_annual_rate_percent;type:decimal(9,4);not null" json:"nominal_annual_rate_percent"`
	EstimatedMonthlyPayment        decimal.Decimal        `gorm:"column:estimated_monthly_payment;type:decimal(18,2);not null" json:"estimated_monthly_payment"`
	TotalPayableAmount             decimal.Decimal        `gorm:"column:total_payable_amount;type:decimal(18,2);not null" json:"total_payable_amount"`
	TotalInterestAmount            decimal.Decimal        `gorm:"column:total_interest_amount;type:decimal(18,2);not null" json:"total_interest_amount"`
	AllocationStrategy             string                 `gorm:"column:allocation_strategy;size:32;not null" json:"allocation_strategy"`

	QuoteInputs           QuoteInputs        `gorm:"column:quote_inputs_snapshot;type:text;serializer:json" json:"quote_inputs_snapshot"`
	QuoteOption           quote.Option       `gorm:"column:quote_option_snapshot;type:text;serializer:json" json:"quote_option_snapshot"`
	Allocation            []quote.Allocation `gorm:"column:allocation_snapshot;type:text;serializer:json" json:"allocation_snapshot"`
	PolicySnapshot        policy.OrgPolicy   `gorm:"column:org_settings_snapshot;type:text;serializer:json" json:"org_settings_snapshot"`
	EligibilitySnapshot   eligibility.Result `gorm:"column:eligibility_result_snapshot;type:text;serializer:json" json:"eligibility_result_snapshot"`
	SnapshotVersion       int                `gorm:"column:snapshot_version;not null" json:"snapshot_version"`
	PolicyVersionSnapshot int64              `gorm:"column:policy_version_snapshot;not null" json:"policy_version_snapshot"`

	MaritalStatusSnapshot string `gorm:"column:marital_status_snapshot;size:32" json:"marital_status_snapshot"`
	SpouseFirstName       string `gorm:"column:spouse_first_name;size:100" json:"spouse_first_name"`
	SpouseMiddleName      string `gorm:"column:spouse_middle_name;size:100" json:"spouse_middle_name"`
	SpouseLastName        string `gorm:"column:spouse_last_name;size:100" json:"spouse_last_name"`
	SpouseEmail           string `gorm:"column:spouse_email;size:255" json:"spouse_email"`
	SpousePhone           string `gorm:"column:spouse_phone;size:50" json:"spouse_phone"`
	SpouseAddress         string `gorm:"column:spouse_address;type:text" json:"spouse_address"`

	ActivationDate     *time.Time `gorm:"column:activation_date" json:"activation_date"`
	Election83bDueDate *time.Time `gorm:"column:election_83b_due_date;type:date" json:"election_83b_due_date"`
	DecisionReason     string     `gorm:"column:decision_reason;type:text" json:"decision_reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (LoanApplication) TableName() string { return "loan_applications" }

// TransitionTo moves the application along the status DAG.
func (a *LoanApplication) TransitionTo(to Status) error {
	if !CanTransition(a.Status, to) {
		return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status, "target_status": to})
	}
	a.Status = to
	return nil
}

// ApplyQuote copies a fresh quote onto the snapshot fields. The first option
// becomes the chosen one.
func (a *LoanApplication) ApplyQuote(q *quote.Quote, req quote.Request, p policy.OrgPolicy) {
	opt := q.Options[0]
	a.SelectionMode = req.SelectionMode
	a.SelectionValue = q.SelectionValue
	a.AsOfDate = q.AsOfDate
	a.SharesToExercise = q.SharesToExercise
	a.TotalExercisableSharesSnapshot = q.TotalExercisableShares
	a.PurchasePrice = q.PurchasePrice
	a.DownPaymentAmount = q.DownPaymentAmount
	a.LoanPrincipal = q.LoanPrincipal
	a.InterestType = opt.InterestType
	a.RepaymentMethod = opt.RepaymentMethod
	a.TermMonths = opt.TermMonths
	a.NominalAnnualRatePercent = opt.NominalAnnualRate
	a.EstimatedMonthlyPayment = opt.EstimatedMonthlyPayment
	a.TotalPayableAmount = opt.TotalPayable
	a.TotalInterestAmount = opt.TotalInterest
	a.AllocationStrategy = q.AllocationStrategy
	a.QuoteInputs = QuoteInputs{Request: req, AsOfDate: q.AsOfDate}
	a.QuoteOption = opt
	a.Allocation = q.Allocation
	a.PolicySnapshot = p
	a.EligibilitySnapshot = q.Eligibility
	a.SnapshotVersion = SnapshotVersion
	a.PolicyVersionSnapshot = q.PolicyVersion
}

// RequoteRequest rebuilds the request that reproduces the stored snapshot.
// PERCENT selections reuse the stored percent rather than deriving it from
// the exercisable total, which may have moved since.
func (a *LoanApplication) RequoteRequest() quote.Request {
	value := a.SelectionValue
	if a.SelectionMode == quote.SelectionShares {
		value = decimal.NewFromInt(a.SharesToExercise)
	}
	return quote.Request{
		SelectionMode:          a.SelectionMode,
		SelectionValue:         value,
		DesiredInterestType:    a.InterestType,
		DesiredRepaymentMethod: a.RepaymentMethod,
		DesiredTermMonths:      a.TermMonths,
	}
}

// MissingSpouseFields lists the spouse fields a partnered applicant left blank.
func (a *LoanApplication) MissingSpouseFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("spouse_first_name", a.SpouseFirstName)
	check("spouse_last_name", a.SpouseLastName)
	check("spouse_email", a.SpouseEmail)
	check("spouse_phone", a.SpousePhone)
	check("spouse_address", a.SpouseAddress)
	return missing
}

// AuditView is the subset of fields recorded in audit entries.
func (a *LoanApplication) AuditView() map[string]any {
	return map[string]any{
		"status":                  a.Status,
		"version":                 a.Version,
		"selection_mode":          a.SelectionMode,
		"selection_value":         a.SelectionValue.String(),
		"as_of_date":              a.AsOfDate.Format("2006-01-02"),
		"shares_to_exercise":      a.SharesToExercise,
		"loan_principal":          a.LoanPrincipal.String(),
		"interest_type":           a.InterestType,
		"repayment_method":        a.RepaymentMethod,
		"term_months":             a.TermMonths,
		"policy_version_snapshot": a.PolicyVersionSnapshot,
		"marital_status_snapshot": a.MaritalStatusSnapshot,
		"decision_reason":         a.DecisionReason,
	}
}

func (a *LoanApplication) InFlight() bool {
	return a.Status == StatusSubmitted || a.Status == StatusInReview
}

// NormalizeIdempotencyKey trims the key; blank keys mean "none".
func NormalizeIdempotencyKey(k string) (*string, error) {
	k = strings.TrimSpace(k)
	if k == "" {
		return nil, nil
	}
	if len(k) > MaxIdempotencyKeyLen {
		return nil, errs.ErrInvalidIdempotencyKey.WithDetails(map[string]any{
			"field":      "Idempotency-Key",
			"max_length": MaxIdempotencyKeyLen,
		})
	}
	return &k, nil
}
