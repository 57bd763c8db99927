// Package erp contains the domain model for the external ERP integration:
// the failure taxonomy that drives retry, session, and lockout policy,
// the authenticated session value object, and the ports implemented by
// the infrastructure layer (gateway, product source, order store).
//
// Following the Ports & Adapters pattern, this package has no knowledge
// of HTTP, spreadsheets, or persistence - those live in
// internal/infrastructure.
package erp
