// Package errors provides structured, actionable error messages for vtree.
//
// Every failure the command line reports is mapped to a coded error:
//   - apply: a patch list could not be applied to a live tree
//   - registry: the listener registry lost track of a handle
//   - parse: a tree file could not be read or decoded
//   - protocol: a wire frame could not be decoded or the peers desynced
//   - config: vtree.json is missing a field or holds a bad value
//   - watch: the watch server or a mirror failed
//   - cli: a command was invoked with bad arguments
//
// # Error Codes
//
// Each error has a unique code (e.g., "E100") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.Classify(applyErr).
//	    WithSuggestion("Re-run vtree diff against the tree that is mounted")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E100: Patch path does not resolve
//	//
//	//   A patch addressed a node that is not in the live tree. The live
//	//   tree and the patch list have desynchronized.
//	//
//	//   Hint: Re-run vtree diff against the tree that is mounted
//	//
//	//   Learn more: https://vtree.dev/docs/errors/E100
package errors
