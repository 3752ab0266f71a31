// Package bootstep models the boot sequence every profile node runs and renders it into
// shell commands through the templator engine.
package bootstep

import (
	"fmt"
	"path"
	"strings"

	"github.com/terabiome/cloudprofile/pkg/constants"
	"github.com/terabiome/cloudprofile/pkg/templator"
)

type Kind int

const (
	FetchOrUpdate Kind = iota + 1
	MakeExecutable
	Execute
)

const (
	DefaultFetchOrUpdateTemplate  = "git clone {{.RepositoryURL}} {{.RepositoryPath}} || (cd {{.RepositoryPath}} && git pull)"
	DefaultMakeExecutableTemplate = "chmod +x {{.EntryScriptPath}}"
	DefaultExecuteTemplate        = "{{.EntryScriptPath}}"
)

func (k Kind) String() string {
	switch k {
	case FetchOrUpdate:
		return "fetch-or-update"
	case MakeExecutable:
		return "make-executable"
	case Execute:
		return "execute"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TemplateName is the engine template that renders this step.
func (k Kind) TemplateName() string {
	switch k {
	case FetchOrUpdate:
		return constants.TemplateFetchOrUpdate
	case MakeExecutable:
		return constants.TemplateMakeExecutable
	case Execute:
		return constants.TemplateExecute
	default:
		return ""
	}
}

// Sequence is the fixed order in which nodes run their boot steps.
func Sequence() []Kind {
	return []Kind{FetchOrUpdate, MakeExecutable, Execute}
}

// Source is the repository a node fetches at boot and the script it runs from it.
type Source struct {
	RepositoryURL  string
	RepositoryPath string
	EntryScript    string
}

// EntryScriptPath is the absolute path of the entry script on the node.
func (s Source) EntryScriptPath() string {
	if path.IsAbs(s.EntryScript) {
		return s.EntryScript
	}
	return path.Join(s.RepositoryPath, s.EntryScript)
}

type TemplateVars struct {
	RepositoryURL   string
	RepositoryPath  string
	EntryScript     string
	EntryScriptPath string
}

// Command is a rendered boot step.
type Command struct {
	Kind    Kind
	Shell   string
	Command string
}

type Renderer struct {
	engine *templator.Engine
	shell  string
}

// NewRenderer registers the default command template for every step the engine does not
// already hold, so templates loaded beforehand act as overrides.
func NewRenderer(engine *templator.Engine, shell string) (*Renderer, error) {
	if shell == "" {
		return nil, fmt.Errorf("boot shell must not be empty")
	}

	defaults := map[string]string{
		constants.TemplateFetchOrUpdate:  DefaultFetchOrUpdateTemplate,
		constants.TemplateMakeExecutable: DefaultMakeExecutableTemplate,
		constants.TemplateExecute:        DefaultExecuteTemplate,
	}
	for name, text := range defaults {
		if engine.HasTemplate(name) {
			continue
		}
		if err := engine.LoadTemplateString(name, text); err != nil {
			return nil, err
		}
	}

	return &Renderer{engine: engine, shell: shell}, nil
}

func (r *Renderer) Render(kind Kind, src Source) (Command, error) {
	name := kind.TemplateName()
	if name == "" {
		return Command{}, fmt.Errorf("unsupported boot step %s", kind)
	}

	vars := TemplateVars{
		RepositoryURL:   src.RepositoryURL,
		RepositoryPath:  src.RepositoryPath,
		EntryScript:     src.EntryScript,
		EntryScriptPath: src.EntryScriptPath(),
	}

	rendered, err := r.engine.RenderToString(name, vars)
	if err != nil {
		return Command{}, fmt.Errorf("could not render %s step: %w", kind, err)
	}

	rendered = strings.TrimSpace(rendered)
	if rendered == "" {
		return Command{}, fmt.Errorf("%s step rendered an empty command", kind)
	}

	return Command{Kind: kind, Shell: r.shell, Command: rendered}, nil
}

// RenderSequence renders every step of Sequence in order.
func (r *Renderer) RenderSequence(src Source) ([]Command, error) {
	kinds := Sequence()
	commands := make([]Command, 0, len(kinds))
	for _, kind := range kinds {
		cmd, err := r.Render(kind, src)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}
