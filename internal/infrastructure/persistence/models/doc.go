// Package models holds the GORM rows behind the ledger's domain types.
//
// Domain structs carry no tags; each model here has FromDomain/ToDomain
// mappers and repositories only ever hand domain values back to callers.
// ledger.go covers dues, adjustments, accounts, journal entries and
// receipts. directory.go holds the read-only student and fee structure rows
// owned by other modules.
//
// Money columns are decimal(18,4). The SQL files in /migrations define the
// production schema; the tags here exist so tests can AutoMigrate.
package models
