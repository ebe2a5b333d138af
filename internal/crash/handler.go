package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"tg-sanction/internal/logger"
)

// Recover logs a recovered panic with its stack trace. It must be deferred
// directly by the function that may panic.
func Recover(moduleName string) {
	if r := recover(); r != nil {
		report(moduleName, r, "PANIC")
	}
}

// RecoverAndExit is deferred by main; it reports the panic and exits with a
// non-zero status so the supervisor restarts the process. Pending sanctions
// are re-armed from storage on the next start.
func RecoverAndExit(moduleName string) {
	if r := recover(); r != nil {
		report(moduleName, r, "FATAL PANIC")
		time.Sleep(time.Second)
		os.Exit(1)
	}
}

// SafeGoroutine starts fn in a goroutine that survives a panic in fn.
func SafeGoroutine(name string, fn func()) {
	go func() {
		defer Recover("goroutine-" + name)
		fn()
	}()
}

func report(moduleName string, r interface{}, label string) {
	stack := debug.Stack()

	logger.Errorf("%s in %s: %v", label, moduleName, r)
	logger.Errorf("Stack trace:\n%s", string(stack))

	// stderr as well, container logs may not include the log file
	fmt.Fprintf(os.Stderr, "[%s] %s - %s: %v\n", label, time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
	fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(stack))

	logRuntimeInfo()
}

func logRuntimeInfo() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := fmt.Sprintf(`
Runtime Information:
- Go version: %s
- Number of CPUs: %d
- Number of goroutines: %d
- Heap allocated: %d KB
- Heap in use: %d KB
- Num GC: %d
`,
		runtime.Version(),
		runtime.NumCPU(),
		runtime.NumGoroutine(),
		m.HeapAlloc/1024,
		m.HeapInuse/1024,
		m.NumGC,
	)

	logger.Error(info)
	fmt.Fprint(os.Stderr, info)
}

// Setup enables panics on unexpected memory faults so they reach Recover.
func Setup() {
	debug.SetPanicOnFault(true)
}
