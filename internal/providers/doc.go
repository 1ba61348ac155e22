// Package providers contains the external analysis adapters.
//
// Every adapter follows the same contract: it is triggered at most once per
// record, runs fully asynchronously, and settles with either a typed
// outcome or a classified error. A disabled or unconfigured capability is
// not an error; the adapter settles with a skipped outcome after a fixed
// delay so the record still completes. Adapter failures never cross the
// fan-out boundary as panics or shared errors; the orchestrator records
// them per provider.
package providers
