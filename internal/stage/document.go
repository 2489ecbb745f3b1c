package stage

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// BuildDocument renders a requirements artifact as a human-readable
// markdown document. The transform is deterministic: the same artifact
// always yields the same document, with no generative call.
func BuildDocument(theme string, req *RequirementsArtifact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Product Requirements: %s\n\n", strings.TrimSpace(theme))

	b.WriteString("## Problem Statement\n\n")
	writeLineOrPlaceholder(&b, req.ProblemStatement, "_Not yet established._")

	b.WriteString("## Target Users\n\n")
	writeLineOrPlaceholder(&b, req.TargetUsers, "_Not yet established._")

	b.WriteString("## Core Features\n\n")
	if len(req.CoreFeatures) == 0 {
		b.WriteString("_No features defined._\n\n")
	} else {
		for _, priority := range []string{"must", "should", "could"} {
			features := featuresByPriority(req.CoreFeatures, priority)
			if len(features) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", priorityHeading(priority))
			for _, f := range features {
				fmt.Fprintf(&b, "- **%s** (%s): %s\n", f.Name, f.ID, f.Description)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Success Metrics\n\n")
	writeListOrPlaceholder(&b, req.SuccessMetrics, "_No metrics defined._")

	b.WriteString("## Out of Scope\n\n")
	writeListOrPlaceholder(&b, req.OutOfScope, "_Nothing excluded yet._")

	return b.String()
}

// RenderHTML converts a markdown document to HTML.
func RenderHTML(markdown string) (string, error) {
	var out strings.Builder
	if err := goldmark.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return out.String(), nil
}

func featuresByPriority(features []Feature, priority string) []Feature {
	var out []Feature
	for _, f := range features {
		if f.Priority == priority {
			out = append(out, f)
		}
	}
	return out
}

func priorityHeading(priority string) string {
	switch priority {
	case "must":
		return "Must Have"
	case "should":
		return "Should Have"
	default:
		return "Could Have"
	}
}

func writeLineOrPlaceholder(b *strings.Builder, text, placeholder string) {
	if strings.TrimSpace(text) == "" {
		text = placeholder
	}
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\n")
}

func writeListOrPlaceholder(b *strings.Builder, items []string, placeholder string) {
	if len(items) == 0 {
		b.WriteString(placeholder)
		b.WriteString("\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
