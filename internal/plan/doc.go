// Package plan defines the plan and task model shared by the proxy and the
// client-side store, along with the fallback plan templates and the task
// filtering, sorting and statistics helpers.
package plan
