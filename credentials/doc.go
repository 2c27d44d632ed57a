// Package credentials manages the identities a device presents to a broker.
//
// It supports:
//   - Ordered failover sets consumed front to back (see Set)
//   - Connection-string parsing (see Parse)
//   - Key material resolution from the environment or files (see ResolveKey)
//   - Short-lived signed access tokens for broker authentication
//     (see TokenSource)
//
// A credential rejected by the broker is discarded permanently; the next
// candidate in the set becomes active. An exhausted set is a terminal
// condition for the connection that was using it.
package credentials
