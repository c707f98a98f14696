package intent

import (
	"fmt"
	"strings"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/types"
)

const maxInstalledInPrompt = 150

func parseInstruction(reg *commands.Registry) string {
	var sb strings.Builder
	sb.WriteString("You translate desktop commands into JSON. Reply with one JSON object and nothing else:\n")
	sb.WriteString(`{"commands": [...], "needs_clarification": bool, "clarification_reason": string|null}` + "\n\n")
	sb.WriteString("Each command is an object with a \"type\" and the fields listed:\n")
	for _, s := range reg.GetAll() {
		if s.Fields == "" {
			fmt.Fprintf(&sb, "- {\"type\": %q}: %s\n", s.Kind, s.Description)
		} else {
			fmt.Fprintf(&sb, "- {\"type\": %q, %s}: %s\n", s.Kind, s.Fields, s.Description)
		}
	}
	sb.WriteString(`
Rules:
- Use application names exactly as listed in the context.
- Tabs are addressed by the global index shown in the context. To pick a tab by name, find it by title or domain and use its index.
- Several actions in one sentence become several commands, in the order spoken.
- Questions about the desktop become a single "query" command.
- If an application or preset cannot be identified, return no commands, set needs_clarification to true and explain why in clarification_reason.
`)
	return sb.String()
}

const answerInstruction = `You answer short questions about the user's desktop: running applications, open browser tabs and saved layouts. Use only the context provided. Answer in a few plain lines without markdown.`

func writeContext(sb *strings.Builder, snap types.Snapshot) {
	fmt.Fprintf(sb, "Running applications: %s\n", joinOrNone(snap.RunningApps))
	installed := snap.InstalledApps
	if len(installed) > maxInstalledInPrompt {
		installed = installed[:maxInstalledInPrompt]
	}
	fmt.Fprintf(sb, "Installed applications: %s\n", joinOrNone(installed))
	fmt.Fprintf(sb, "Presets: %s\n", joinOrNone(snap.Presets))
	if len(snap.Tabs) == 0 {
		sb.WriteString("Open tabs: (none)\n")
		return
	}
	sb.WriteString("Open tabs:\n")
	for _, t := range snap.Tabs {
		fmt.Fprintf(sb, "  %s %s\n", t.Label(), t.URL)
	}
}

func parsePrompt(text string, snap types.Snapshot) string {
	var sb strings.Builder
	writeContext(&sb, snap)
	fmt.Fprintf(&sb, "\nUser command: %q\n", text)
	return sb.String()
}

func answerPrompt(question string, snap types.Snapshot, history []types.QA) string {
	var sb strings.Builder
	writeContext(&sb, snap)
	if len(history) > 0 {
		sb.WriteString("\nEarlier questions:\n")
		for _, qa := range history {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", qa.Question, qa.Answer)
		}
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)
	return sb.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
