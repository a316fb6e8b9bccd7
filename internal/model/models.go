package model

import (
	"fmt"
	"time"
)

// Base model fields shared by all models
type Base struct {
	UUID      string    `json:"uuid" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer represents a client that owns equipment and requests service
type Customer struct {
	Base
	Name            string  `json:"name" gorm:"not null"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	SecondaryPhone  string  `json:"secondary_phone"`
	IsServiceClient bool    `json:"is_service_client"`
	ClientSequence  *string `json:"client_sequence" gorm:"uniqueIndex"`
	Notes           string  `json:"notes"`

	Equipment []Equipment    `json:"equipment,omitempty" gorm:"foreignKey:CustomerID"`
	Orders    []ServiceOrder `json:"orders,omitempty" gorm:"foreignKey:CustomerID"`
}

// Equipment represents a physical piece of customer equipment in the field
type Equipment struct {
	Base
	Code          string  `json:"code" gorm:"uniqueIndex;not null"`
	EquipmentType string  `json:"equipment_type" gorm:"not null"`
	Brand         string  `json:"brand" gorm:"not null"`
	Model         string  `json:"model"`
	SerialNumber  *string `json:"serial_number" gorm:"uniqueIndex"`
	Location      string  `json:"location"`
	CustomerID    string  `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer      *Customer `json:"-" gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	Active        bool    `json:"active" gorm:"default:true"`

	Orders []ServiceOrder `json:"orders,omitempty" gorm:"foreignKey:EquipmentID"`
}

// LookupKey returns the stable public identifier encoded in the equipment QR code.
// Format: <client_sequence>-<equipment_code>. Empty until the owning customer
// has been assigned a client sequence.
func (e *Equipment) LookupKey() string {
	if e.Customer == nil || e.Customer.ClientSequence == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s", *e.Customer.ClientSequence, e.Code)
}

// Technician represents a field technician with configured availability
type Technician struct {
	Base
	Name           string `json:"name" gorm:"not null"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	IsTechnician   bool   `json:"is_technician"`
	AvailableHours string `json:"available_hours"`
	MaxDailyOrders int    `json:"max_daily_orders" gorm:"default:4"`
	Level          string `json:"level"`
	Specialties    string `json:"specialties"`

	Orders []ServiceOrder `json:"orders,omitempty" gorm:"foreignKey:TechnicianID"`
}

// ServiceType represents reference data describing a kind of service work
type ServiceType struct {
	Base
	Code              string  `json:"code" gorm:"uniqueIndex;not null"`
	Name              string  `json:"name" gorm:"not null"`
	Description       string  `json:"description"`
	BasePrice         float64 `json:"base_price"`
	EstimatedDuration float64 `json:"estimated_duration"`
	IncomeAccount     string  `json:"income_account"`
	Active            bool    `json:"active" gorm:"default:true"`
}

// Product represents a stockable part used on refaction lines
type Product struct {
	Base
	Code                  string  `json:"code" gorm:"uniqueIndex;not null"`
	Name                  string  `json:"name" gorm:"not null"`
	ListPrice             float64 `json:"list_price"`
	IncomeAccount         string  `json:"income_account"`
	CategoryIncomeAccount string  `json:"category_income_account"`
	QtyOnHand             float64 `json:"qty_on_hand"`
	QtyReserved           float64 `json:"qty_reserved"`
}

// IncomeAccountCode returns the income account for invoicing, falling back
// to the product category's default account.
func (p *Product) IncomeAccountCode() string {
	if p.IncomeAccount != "" {
		return p.IncomeAccount
	}
	return p.CategoryIncomeAccount
}

// OrderState defines the lifecycle state of a service order
type OrderState string

const (
	// OrderStateDraft is the initial state at intake
	OrderStateDraft OrderState = "draft"
	// OrderStateAssigned means a technician and date have been scheduled
	OrderStateAssigned OrderState = "assigned"
	// OrderStateInProgress means the technician has started the work
	OrderStateInProgress OrderState = "in_progress"
	// OrderStatePendingApproval means a diagnosis awaits customer approval
	OrderStatePendingApproval OrderState = "pending_approval"
	// OrderStateAccepted means the customer approved the diagnosis
	OrderStateAccepted OrderState = "accepted"
	// OrderStateDone is terminal: work completed
	OrderStateDone OrderState = "done"
	// OrderStateCancelled is terminal: order cancelled
	OrderStateCancelled OrderState = "cancelled"
)

// Label returns the human-readable label for the state
func (s OrderState) Label() string {
	labels := map[OrderState]string{
		OrderStateDraft:           "Draft",
		OrderStateAssigned:        "Assigned",
		OrderStateInProgress:      "In Progress",
		OrderStatePendingApproval: "Pending Approval",
		OrderStateAccepted:        "Accepted",
		OrderStateDone:            "Done",
		OrderStateCancelled:       "Cancelled",
	}

	if label, ok := labels[s]; ok {
		return label
	}
	return "Unknown"
}

// IsTerminal reports whether no further transitions are permitted
func (s OrderState) IsTerminal() bool {
	return s == OrderStateDone || s == OrderStateCancelled
}

// Valid reports whether the state is a known lifecycle state
func (s OrderState) Valid() bool {
	switch s {
	case OrderStateDraft, OrderStateAssigned, OrderStateInProgress,
		OrderStatePendingApproval, OrderStateAccepted, OrderStateDone, OrderStateCancelled:
		return true
	}
	return false
}

// ProgressPercent returns the portal progress bar percentage for the state
func (s OrderState) ProgressPercent() int {
	progress := map[OrderState]int{
		OrderStateDraft:           0,
		OrderStateAssigned:        25,
		OrderStateInProgress:      50,
		OrderStatePendingApproval: 75,
		OrderStateAccepted:        85,
		OrderStateDone:            100,
		OrderStateCancelled:       0,
	}
	return progress[s]
}

// OrderPriority defines the urgency of a service order
type OrderPriority string

const (
	PriorityLow    OrderPriority = "low"
	PriorityNormal OrderPriority = "normal"
	PriorityHigh   OrderPriority = "high"
	PriorityUrgent OrderPriority = "urgent"
)

// Valid reports whether the priority is a known value
func (p OrderPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AcceptanceStatus defines the customer's approval decision on a diagnosis
type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceRejected AcceptanceStatus = "rejected"
)

// ServiceOrder is the aggregate root for a unit of service work
type ServiceOrder struct {
	Base
	Number        string     `json:"number" gorm:"uniqueIndex;not null"`
	CustomerID    string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer      *Customer  `json:"-" gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	EquipmentID   string     `json:"equipment_id" gorm:"type:uuid;not null;index"`
	Equipment     *Equipment `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID;constraint:OnDelete:RESTRICT"`
	ServiceTypeID string     `json:"service_type_id" gorm:"type:uuid;not null"`
	ServiceType   *ServiceType `json:"-" gorm:"foreignKey:ServiceTypeID;constraint:OnDelete:RESTRICT"`
	TechnicianID  *string    `json:"technician_id" gorm:"type:uuid;index"`
	Technician    *Technician `json:"technician,omitempty" gorm:"foreignKey:TechnicianID"`

	State         OrderState    `json:"state" gorm:"not null;default:draft;index"`
	Priority      OrderPriority `json:"priority" gorm:"not null;default:normal"`
	ScheduledAt   *time.Time    `json:"scheduled_at" gorm:"index"`
	StartedAt     *time.Time    `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at"`
	ReportedFault string        `json:"reported_fault" gorm:"type:text;not null"`
	Diagnosis     string        `json:"diagnosis" gorm:"type:text"`
	WorkPerformed string        `json:"work_performed" gorm:"type:text"`
	Notes         string        `json:"notes" gorm:"type:text"`

	AcceptanceStatus  AcceptanceStatus `json:"acceptance_status" gorm:"not null;default:pending"`
	RejectionReason   string           `json:"rejection_reason" gorm:"type:text"`
	CustomerSignature []byte           `json:"-"`
	PhotoBefore       []byte           `json:"-"`
	PhotoAfter        []byte           `json:"-"`

	InvoiceID *string  `json:"invoice_id" gorm:"type:uuid"`
	Invoice   *Invoice `json:"-" gorm:"foreignKey:InvoiceID"`

	TotalAmount       float64    `json:"total_amount"`
	OverdueNotifiedAt *time.Time `json:"-"`

	RefactionLines []RefactionLine `json:"refaction_lines,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// RecomputeTotal recalculates the stored total from the service type base
// price plus the sum of refaction line totals.
func (o *ServiceOrder) RecomputeTotal(basePrice float64) {
	total := basePrice
	for _, line := range o.RefactionLines {
		total += line.TotalPrice
	}
	o.TotalAmount = total
}

// Duration returns the real service duration in hours. Zero until both the
// start and end timestamps are set.
func (o *ServiceOrder) Duration() float64 {
	if o.StartedAt == nil || o.EndedAt == nil {
		return 0
	}
	return o.EndedAt.Sub(*o.StartedAt).Hours()
}

// IsOverdue reports whether the order is scheduled in the past and not yet
// completed or cancelled.
func (o *ServiceOrder) IsOverdue(now time.Time) bool {
	return o.ScheduledAt != nil && o.ScheduledAt.Before(now) && !o.State.IsTerminal()
}

// CanStart reports whether the order is ready for the technician to begin
func (o *ServiceOrder) CanStart() bool {
	return o.State == OrderStateAssigned && o.TechnicianID != nil && o.ScheduledAt != nil
}

// RefactionLine is an itemized part charge attached to a service order
type RefactionLine struct {
	Base
	OrderID     string        `json:"order_id" gorm:"type:uuid;not null;index"`
	Order       *ServiceOrder `json:"-" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ProductID   string        `json:"product_id" gorm:"type:uuid;not null"`
	Product     *Product      `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity    float64       `json:"quantity" gorm:"not null"`
	UnitPrice   float64       `json:"unit_price" gorm:"not null"`
	TotalPrice  float64       `json:"total_price"`
	Description string        `json:"description"`
}

// RecomputeTotal recalculates the stored line total
func (l *RefactionLine) RecomputeTotal() {
	l.TotalPrice = l.Quantity * l.UnitPrice
}

// OrderLog records a state change on a service order for the audit trail
type OrderLog struct {
	Base
	OrderID  string `json:"order_id" gorm:"type:uuid;not null;index"`
	OldState string `json:"old_state"`
	NewState string `json:"new_state"`
	Note     string `json:"note" gorm:"type:text"`
}

// Invoice is the billing document generated when an order completes
type Invoice struct {
	Base
	Number     string  `json:"number" gorm:"uniqueIndex;not null"`
	CustomerID string  `json:"customer_id" gorm:"type:uuid;not null;index"`
	Origin     string  `json:"origin"`
	Total      float64 `json:"total"`

	Lines []InvoiceLine `json:"lines,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// InvoiceLine is a single billed line on an invoice
type InvoiceLine struct {
	Base
	InvoiceID   string  `json:"invoice_id" gorm:"type:uuid;not null;index"`
	ProductID   *string `json:"product_id" gorm:"type:uuid"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	AccountCode string  `json:"account_code"`
}

// ReservationStatus defines the lifecycle of a stock reservation
type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "reserved"
	ReservationConsumed ReservationStatus = "consumed"
	ReservationReleased ReservationStatus = "released"
)

// StockReservation guards inventory movements per refaction line. The
// unique line index makes reserve/consume/release idempotent.
type StockReservation struct {
	Base
	LineID    string            `json:"line_id" gorm:"type:uuid;not null;uniqueIndex"`
	OrderID   string            `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID string            `json:"product_id" gorm:"type:uuid;not null"`
	Quantity  float64           `json:"quantity" gorm:"not null"`
	Status    ReservationStatus `json:"status" gorm:"not null"`
}

// Sequence is a per-key monotonic counter used for human-readable numbers
type Sequence struct {
	Key        string `gorm:"primaryKey"`
	Prefix     string `gorm:"not null"`
	Padding    int    `gorm:"not null;default:5"`
	NextNumber int64  `gorm:"not null;default:1"`
}

// Sequence keys used by the service
const (
	SequenceServiceOrder = "service_order"
	SequenceEquipment    = "equipment"
	SequenceClient       = "client"
	SequenceInvoice      = "invoice"
)
