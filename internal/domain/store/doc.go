// Package store contains the storefront-side domain model: customer
// orders with their ERP synchronization status, the catalog view served
// to shoppers, and the persistence port for the order store.
package store
