// Package auth is the client-side access layer of the estate tokenization
// portal: it resolves the current wallet into a backend user, tracks the
// session lifecycle, and derives the permission set guards consume.
//
// Sessions:
//   - SessionStore keeps one identity token in memory, backed by a
//     TokenStorage (memory, file or SQLite, see the storage package).
//   - AuthState drives the idle/loading/authenticated/unauthenticated phases.
//     The most recently started Login, Logout or Restore wins; anything that
//     settles later or after Close is dropped.
//
// Identity resolution:
//   - AuthService validates the token shape, logs in against the Backend and
//     auto-provisions wallets the backend reports as NotFound or
//     Unauthorized. Provisioning is attempted once; a failure is reported as
//     a ProvisionError carrying the original cause.
//
// Access:
//   - ResolvePermissions is pure and total. Every permission is false for an
//     unauthenticated caller, whatever the user record says.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the service and the
//     state. Sinks run best-effort (errors are logged).
package auth
