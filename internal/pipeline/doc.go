// Package pipeline provides a framework for executing run steps in sequence.
//
// A wordcrawl run passes through several stages: crawling, report
// generation, profile output and persistence. Each stage is implemented as
// a Step that receives the run and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
//
// Steps that publish results implement Finalizer and still run after an
// earlier step failed or the context was cancelled, so an interrupted crawl
// still reports the words it gathered.
//
// The pipeline supports both individual runs and batch processing of several
// crawl files with concurrency control using errgroup.
package pipeline
