package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	StarterBalance  = 20_000.0
	CompanyFee      = 10_000.0
	InvestDiscount  = 0.5 // buy price relative to current price
	MaxHistory      = 60
	MinPrice        = 0.01
	MinStockLevel   = 0.01
	MaxStockLevel   = 1.0
	TargetStock     = 0.6
	MaxBulkQty      = 20_480
	MinBulkQty      = 1_000
	MinSoloQty      = 10
	MaxSoloQty      = 500
	CompanyShare    = 0.25 // fraction of the joined company counted in net worth
	PFScale         = 10_000.0
	DefaultPlayer   = "You"
	MinTickInterval = 500 // ms
	DefaultTickMs   = 3_000
	maxNameLen      = 40
)

// Kind classifies domain failures.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPrecondition
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrUnknownResource   = newError(KindValidation, "unknown resource")
	ErrInvalidAmount     = newError(KindValidation, "amount must be a positive number")
	ErrInsufficientFunds = newError(KindValidation, "insufficient funds")
	ErrBelowOneUnit      = newError(KindValidation, "amount does not buy a single unit")
	ErrNoCompany         = newError(KindValidation, "not in a company")
	ErrNotMember         = newError(KindValidation, "not a member of this company")
	ErrInvalidName       = newError(KindValidation, "invalid name")
	ErrInvalidOwner      = newError(KindValidation, "owner must be player or company")
	ErrInvalidTier       = newError(KindValidation, "tier is not available")
	ErrInvalidMode       = newError(KindValidation, "mode must be solo or company")
	ErrInvalidOre        = newError(KindValidation, "invalid ore definition")
	ErrInvalidSettings   = newError(KindValidation, "invalid settings")
	ErrNoResources       = newError(KindValidation, "no resources in the catalog")

	ErrOrderNotPending  = newError(KindPrecondition, "order is not pending")
	ErrOrderNotAccepted = newError(KindPrecondition, "order has not been accepted")
	ErrOrderCompleted   = newError(KindPrecondition, "order is already completed")

	ErrOrderNotFound      = newError(KindNotFound, "order not found")
	ErrInvestmentNotFound = newError(KindNotFound, "investment not found")
	ErrCompanyNotFound    = newError(KindNotFound, "company not found")

	ErrCorruptSnapshot = newError(KindPersistence, "snapshot is malformed")
)

var blockedNameFragments = []string{
	"admin",
	"moderator",
	"support",
	"nazi",
}

func validateEntityName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, maxNameLen)
	}
	lower := strings.ToLower(name)
	for _, frag := range blockedNameFragments {
		if strings.Contains(lower, frag) {
			return fmt.Errorf("%w: %q is not allowed", ErrInvalidName, name)
		}
	}
	return nil
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
