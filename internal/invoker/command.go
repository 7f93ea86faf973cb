package invoker

import (
	"fmt"

	"rehydrate/internal/platform"
)

// commandBuilder turns a routine script plus operation parameters into
// an argv. One implementation per platform family keeps the coordinator
// free of any platform knowledge.
type commandBuilder interface {
	build(scriptPath, environment string, verifyIntegrity bool) (name string, args []string)
}

// powershellBuilder shapes the windows invocation:
// powershell -ExecutionPolicy Bypass -File <script> -Environment <env> [-VerifyIntegrity]
type powershellBuilder struct{}

func (powershellBuilder) build(scriptPath, environment string, verifyIntegrity bool) (string, []string) {
	args := []string{"-ExecutionPolicy", "Bypass", "-File", scriptPath, "-Environment", environment}
	if verifyIntegrity {
		args = append(args, "-VerifyIntegrity")
	}
	return "powershell", args
}

// shellBuilder shapes the unix invocation:
// bash <script> --environment=<env> [--verify]
type shellBuilder struct{}

func (shellBuilder) build(scriptPath, environment string, verifyIntegrity bool) (string, []string) {
	args := []string{scriptPath, fmt.Sprintf("--environment=%s", environment)}
	if verifyIntegrity {
		args = append(args, "--verify")
	}
	return "bash", args
}

// builderFor selects the command shape for a platform family. Darwin
// shares the unix shape with linux.
func builderFor(id platform.ID) commandBuilder {
	if id == platform.Windows {
		return powershellBuilder{}
	}
	return shellBuilder{}
}

// Command returns the argv that would invoke the routine on the given
// platform. Exposed so callers can log or display the invocation.
func Command(id platform.ID, scriptPath, environment string, verifyIntegrity bool) (string, []string) {
	return builderFor(id).build(scriptPath, environment, verifyIntegrity)
}
