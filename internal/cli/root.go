package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		return runTUI(nil)
	}

	switch args[0] {
	case "run":
		return runTUI(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "export":
		return runExport(args[1:])
	case "version":
		return runVersion(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("yt-tutor-console: AI study companion for YouTube lectures")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  yt-tutor-console doctor")
	fmt.Println("  yt-tutor-console run --video <url|id|file>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run      open the interactive console (default when no command given)")
	fmt.Println("  doctor   run backend and cache preflight checks")
	fmt.Println("  export   write a cached transcript/chat log to files")
	fmt.Println("  version  print the build version")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Settings come from .env / environment (YTC_BACKEND_URL, YTC_CACHE_PATH, ...)")
	fmt.Println("  - Use --json on doctor/version for machine-readable output")
}
