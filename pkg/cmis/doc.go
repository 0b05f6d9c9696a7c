// Package cmis defines the object model of a CMIS content repository:
// typed objects carrying system and custom properties, type definitions
// with inherited property definitions, access control lists, content
// streams and the Service contract implemented by the repository engine.
//
// The engine itself lives in subpackages. typesys holds the type
// hierarchy and property validation, repo/memory the in-memory object
// store with its filing and versioning state, and service the
// orchestration of all repository operations on top of them.
//
// Identity
//
// Every operation acts on behalf of a principal carried in the
// context.Context (see WithPrincipal). Permission checks resolve the
// principal against the object's ACL; a configured super user bypasses
// all checks.
package cmis
