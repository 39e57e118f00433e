// Package preflight provides readiness checks for the external programs and
// filesystem paths recproc depends on.
//
// These checks run in two contexts:
//   - "recproc run" calls RunAll before touching the archive. If a required
//     check fails the run stops before any transcoder is started.
//   - "recproc doctor" renders every check, including binary versions.
package preflight
