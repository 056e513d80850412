package prompts

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"content-crew/internal/application/port/output"
)

var funcs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

// Render executes a prompt template against data.
func Render(name, tmplText string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(tmplText)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}

type AgentInfo struct {
	Kind        string
	Name        string
	Description string
}

type CrewPromptData struct {
	Agents []AgentInfo
}

// GenerateCrewPrompt lists every registered agent, sorted by kind and
// registration order.
func GenerateCrewPrompt(baseTemplate string, registry output.AgentRegistry) (string, error) {
	var infos []AgentInfo
	for _, kind := range registry.Kinds() {
		for _, agent := range registry.All(kind) {
			infos = append(infos, AgentInfo{
				Kind:        string(kind),
				Name:        agent.Name(),
				Description: agent.Description(),
			})
		}
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Kind < infos[j].Kind
	})

	return Render("crew", baseTemplate, CrewPromptData{Agents: infos})
}
