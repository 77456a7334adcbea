// Package policy loads the authorization tables from YAML: the role
// hierarchy, role and privilege grants, risk ceilings, condition
// vocabulary, and the required permissions of every protected operation.
//
// [Load] reads a file, [Parse] reads bytes, and [File.Compile] turns the
// result into frozen tables ready for the evaluator and validator.
package policy
