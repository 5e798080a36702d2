// Package billing contains the financial ledger core of the practice
// management system: invoices with their line items, payments and refunds,
// payment plans with installments, and invoice adjustments.
//
// Aggregates are pure domain objects; persistence lives behind the
// repository interfaces in repository.go. Monetary amounts are
// decimal.Decimal throughout, constructed via the Money value object at the
// boundaries. All aggregates are partitioned by organization.
package billing
