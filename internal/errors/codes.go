// Package errors provides centralized error code definitions for the
// rowscript front-end. All error codes follow a consistent taxonomy so
// downstream tooling can classify diagnostics without parsing messages.
package errors

// Error code constants organized by phase.
const (
	// ============================================================================
	// Name Resolution Errors (RES###)
	// ============================================================================

	// RES001 indicates an unknown import qualifier
	RES001 = "RES001"

	// RES002 indicates an unknown name
	RES002 = "RES002"

	// RES003 indicates an ambiguous import (multiple modules export same name)
	RES003 = "RES003"

	// RES004 indicates a duplicate definition in one module
	RES004 = "RES004"

	// RES005 indicates a reserved builtin name used as a definition
	RES005 = "RES005"

	// RES006 indicates a statement form the elaborator does not accept
	RES006 = "RES006"

	// ============================================================================
	// Kind Errors (KND###)
	// ============================================================================

	// KND001 indicates a kind mismatch (type vs type -> type)
	KND001 = "KND001"

	// KND002 indicates a type constructor applied to the wrong number of arguments
	KND002 = "KND002"

	// ============================================================================
	// Type Checking Errors (TC###)
	// ============================================================================

	// TC001 indicates a type mismatch after unification
	TC001 = "TC001"

	// TC002 indicates an occurs check failure
	TC002 = "TC002"

	// TC003 indicates an unbound variable reached the checker
	TC003 = "TC003"

	// TC004 indicates a projection from a non-record type
	TC004 = "TC004"

	// TC005 indicates application of a non-function
	TC005 = "TC005"

	// ============================================================================
	// Row Errors (ROW###)
	// ============================================================================

	// ROW001 indicates overlapping labels in a row concatenation
	ROW001 = "ROW001"

	// ROW002 indicates missing labels between two rows forced equal
	ROW002 = "ROW002"

	// ROW003 indicates label types that do not unify
	ROW003 = "ROW003"

	// ROW004 indicates a row constraint with insufficient information (stuck)
	ROW004 = "ROW004"

	// ============================================================================
	// Exhaustiveness Errors (EXH###)
	// ============================================================================

	// EXH001 indicates a switch missing cases of the scrutinee's variant row
	EXH001 = "EXH001"

	// EXH002 indicates a switch case not present in the variant row
	EXH002 = "EXH002"

	// ============================================================================
	// Instance Errors (INS###)
	// ============================================================================

	// INS001 indicates no implementation for a concrete carrier
	INS001 = "INS001"

	// INS002 indicates two or more matching implementations
	INS002 = "INS002"

	// INS003 indicates an overlapping implementation registration
	INS003 = "INS003"

	// ============================================================================
	// Finalizer Errors (FIN###)
	// ============================================================================

	// FIN001 indicates an unresolved metavariable after zonking
	FIN001 = "FIN001"

	// FIN002 indicates a stuck predicate on a concrete carrier
	FIN002 = "FIN002"

	// ============================================================================
	// Dependency Errors (DEP###)
	// ============================================================================

	// DEP001 indicates a definition cycle that cannot be linearised
	DEP001 = "DEP001"

	// DEP002 indicates a reference to a definition that failed to elaborate
	DEP002 = "DEP002"
)

// Info provides structured information about an error code
type Info struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// Registry maps error codes to their information
var Registry = map[string]Info{
	RES001: {RES001, "resolve", "import", "Unknown qualifier"},
	RES002: {RES002, "resolve", "scope", "Unknown name"},
	RES003: {RES003, "resolve", "import", "Ambiguous import"},
	RES004: {RES004, "resolve", "namespace", "Duplicate definition"},
	RES005: {RES005, "resolve", "namespace", "Reserved builtin name"},
	RES006: {RES006, "resolve", "syntax", "Unsupported statement form"},

	KND001: {KND001, "kind", "kind", "Kind mismatch"},
	KND002: {KND002, "kind", "arity", "Wrong constructor arity"},

	TC001: {TC001, "typecheck", "type", "Type mismatch"},
	TC002: {TC002, "typecheck", "unification", "Occurs check failed"},
	TC003: {TC003, "typecheck", "scope", "Unbound variable"},
	TC004: {TC004, "typecheck", "record", "Projection from non-record"},
	TC005: {TC005, "typecheck", "application", "Not a function"},

	ROW001: {ROW001, "rows", "labels", "Overlapping labels"},
	ROW002: {ROW002, "rows", "labels", "Missing labels"},
	ROW003: {ROW003, "rows", "types", "Label types do not unify"},
	ROW004: {ROW004, "rows", "stuck", "Row constraint stuck"},

	EXH001: {EXH001, "exhaustiveness", "missing", "Switch missing cases"},
	EXH002: {EXH002, "exhaustiveness", "extra", "Switch has extra cases"},

	INS001: {INS001, "dispatch", "instance", "No implementation"},
	INS002: {INS002, "dispatch", "instance", "Ambiguous implementation"},
	INS003: {INS003, "dispatch", "instance", "Overlapping implementation"},

	FIN001: {FIN001, "finalize", "meta", "Unresolved metavariable"},
	FIN002: {FIN002, "finalize", "predicate", "Stuck predicate on concrete carrier"},

	DEP001: {DEP001, "order", "dependency", "Circular dependency"},
	DEP002: {DEP002, "order", "dependency", "Reference to failed definition"},
}

// GetInfo returns information about an error code
func GetInfo(code string) (Info, bool) {
	info, ok := Registry[code]
	return info, ok
}

// IsResolveError checks if the error code is a name resolution error
func IsResolveError(code string) bool {
	info, ok := GetInfo(code)
	return ok && info.Phase == "resolve"
}

// IsTypeError checks if the error code is a type checking error
func IsTypeError(code string) bool {
	info, ok := GetInfo(code)
	return ok && (info.Phase == "typecheck" || info.Phase == "kind" || info.Phase == "rows")
}

// IsDispatchError checks if the error code is an instance dispatch error
func IsDispatchError(code string) bool {
	info, ok := GetInfo(code)
	return ok && info.Phase == "dispatch"
}
