package report

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/endpoint"
)

const coverageWidth = 80

// nameWidth fits the longest endpoint name in the catalog.
const nameWidth = 28

var titleCase = cases.Title(language.English)

// CoverageText writes the coverage of every chain in cov against catalog,
// grouping endpoints by category. Chains and resources are sorted by name.
func CoverageText(w io.Writer, cov *coverage.Store, catalog []*endpoint.Endpoint) error {
	var b bytes.Buffer
	rule := strings.Repeat("=", coverageWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, center("API COVERAGE REPORT", coverageWidth))
	fmt.Fprintln(&b, rule)

	if len(cov.Chains) == 0 {
		b.WriteString("\nNo coverage data recorded yet.\n")
		b.WriteString("Run some scans to start tracking coverage.\n")
		_, err := b.WriteTo(w)
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(cov.Chains)) {
		cc := cov.Chains[name]
		fmt.Fprintf(&b, "\nChain: %s\n", cc.Chain)
		fmt.Fprintf(&b, "Total resources: %d\n", cc.TotalResourceCount)
		fmt.Fprintln(&b, strings.Repeat("-", coverageWidth))

		for _, cat := range endpoint.Categories() {
			eps := inCategory(catalog, cat)
			if len(eps) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n%s ENDPOINTS:\n", strings.ToUpper(cat.String()))
			for _, ep := range eps {
				writeEndpointLine(&b, cc, ep)
			}
		}

		totals := cc.Totals()
		b.WriteString("\nSUMMARY:\n")
		fmt.Fprintf(&b, "  Endpoints tested: %d/%d\n", testedCount(cc, catalog), len(catalog))
		fmt.Fprintf(&b, "  Overall pass rate: %.2f%% (%d/%d)\n", totals.PassRate(), totals.Matched, totals.Total())
		fmt.Fprintf(&b, "  Last updated: %s\n", formatTime(cc.LastUpdated))
		fmt.Fprintln(&b, rule)
	}

	_, err := b.WriteTo(w)
	return err
}

func writeEndpointLine(b *bytes.Buffer, cc *coverage.ChainCoverage, ep *endpoint.Endpoint) {
	ec := cc.Endpoints[ep.Name]
	if ec == nil || !ec.Tested {
		fmt.Fprintf(b, "  [ ] %-*s not tested\n", nameWidth, ep.Name)
		return
	}

	switch {
	case ep.Category == endpoint.CategoryRuntime:
		fmt.Fprintf(b, "  [✓] %-*s tested (%s)\n", nameWidth, ep.Name, runtimeStatus(ec))
	case ec.PerResource():
		fmt.Fprintf(b, "  [✓] %-*s %3d/%-3d %s tested (%.1f%% pass rate)\n",
			nameWidth, ep.Name, len(ec.Resources), cc.TotalResourceCount, resourceNoun(ep), ec.PassRate())
		for _, name := range slices.Sorted(maps.Keys(ec.Resources)) {
			rc := ec.Resources[name]
			fmt.Fprintf(b, "      - %s: blocks [%s] (%.1f%% pass)\n", name, rc.Ranges, rc.PassRate())
		}
	default:
		fmt.Fprintf(b, "  [✓] %-*s blocks [%s] (%.1f%% pass rate)\n", nameWidth, ep.Name, ec.Ranges, ec.PassRate())
	}
}

// CoverageMarkdown writes the coverage of every chain in cov as Markdown
// tables, one per endpoint category, plus per-resource detail tables.
func CoverageMarkdown(w io.Writer, cov *coverage.Store, catalog []*endpoint.Endpoint) error {
	var b bytes.Buffer

	b.WriteString("# Coverage Tracking\n\n")
	b.WriteString("Generated from the coverage file. Every scan merges its block ranges and outcome counters into it.\n\n")
	b.WriteString("## Current Coverage\n\n")

	if len(cov.Chains) == 0 {
		b.WriteString("No coverage data recorded yet. Run some scans to start tracking coverage.\n")
		_, err := b.WriteTo(w)
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(cov.Chains)) {
		cc := cov.Chains[name]
		totals := cc.Totals()

		fmt.Fprintf(&b, "### Chain: %s\n\n", cc.Chain)
		fmt.Fprintf(&b, "- **Total resources:** %d\n", cc.TotalResourceCount)
		fmt.Fprintf(&b, "- **Last updated:** %s\n\n", formatTime(cc.LastUpdated))

		b.WriteString("| Metric | Value |\n")
		b.WriteString("|--------|-------|\n")
		fmt.Fprintf(&b, "| Endpoints tested | %d/%d |\n", testedCount(cc, catalog), len(catalog))
		fmt.Fprintf(&b, "| Overall pass rate | %.2f%% (%d/%d) |\n\n", totals.PassRate(), totals.Matched, totals.Total())

		for _, cat := range endpoint.Categories() {
			eps := inCategory(catalog, cat)
			if len(eps) == 0 {
				continue
			}
			fmt.Fprintf(&b, "#### %s Endpoints\n\n", titleCase.String(cat.String()))
			writeCategoryTable(&b, cc, cat, eps)
			b.WriteString("\n")
		}

		writeResourceDetails(&b, cc, catalog)
	}

	_, err := b.WriteTo(w)
	return err
}

func writeCategoryTable(b *bytes.Buffer, cc *coverage.ChainCoverage, cat endpoint.Category, eps []*endpoint.Endpoint) {
	switch cat {
	case endpoint.CategoryRuntime:
		b.WriteString("| Endpoint | Status | Result |\n")
		b.WriteString("|----------|--------|--------|\n")
	case endpoint.CategoryPallet:
		b.WriteString("| Endpoint | Status | Pallets Tested | Pass Rate |\n")
		b.WriteString("|----------|--------|----------------|-----------|\n")
	default:
		b.WriteString("| Endpoint | Status | Block Ranges | Pass Rate |\n")
		b.WriteString("|----------|--------|--------------|-----------|\n")
	}

	for _, ep := range eps {
		ec := cc.Endpoints[ep.Name]
		tested := ec != nil && ec.Tested
		switch {
		case !tested && cat == endpoint.CategoryRuntime:
			fmt.Fprintf(b, "| %s | ❌ | - |\n", ep.Name)
		case !tested:
			fmt.Fprintf(b, "| %s | ❌ | - | - |\n", ep.Name)
		case cat == endpoint.CategoryRuntime:
			fmt.Fprintf(b, "| %s | ✅ | %s |\n", ep.Name, runtimeStatus(ec))
		case ec.PerResource():
			fmt.Fprintf(b, "| %s | ✅ | %d/%d | %.1f%% |\n", ep.Name, len(ec.Resources), cc.TotalResourceCount, ec.PassRate())
		default:
			fmt.Fprintf(b, "| %s | ✅ | %s | %.1f%% |\n", ep.Name, ec.Ranges, ec.PassRate())
		}
	}
}

func writeResourceDetails(b *bytes.Buffer, cc *coverage.ChainCoverage, catalog []*endpoint.Endpoint) {
	var detailed []*endpoint.Endpoint
	for _, ep := range catalog {
		if ec := cc.Endpoints[ep.Name]; ec != nil && ec.Tested && len(ec.Resources) > 0 {
			detailed = append(detailed, ep)
		}
	}
	if len(detailed) == 0 {
		return
	}

	b.WriteString("#### Detailed Resource Coverage\n\n")
	for _, ep := range detailed {
		ec := cc.Endpoints[ep.Name]
		fmt.Fprintf(b, "**%s:**\n\n", ep.Name)
		b.WriteString("| Resource | Block Ranges | Matched | Mismatched | Errors | Pass Rate |\n")
		b.WriteString("|----------|--------------|---------|------------|--------|-----------|\n")
		for _, name := range slices.Sorted(maps.Keys(ec.Resources)) {
			rc := ec.Resources[name]
			fmt.Fprintf(b, "| %s | %s | %d | %d | %d | %.1f%% |\n",
				name, rc.Ranges, rc.Matched, rc.Mismatched, rc.Errors(), rc.PassRate())
		}
		b.WriteString("\n")
	}
}

func inCategory(catalog []*endpoint.Endpoint, cat endpoint.Category) []*endpoint.Endpoint {
	var out []*endpoint.Endpoint
	for _, ep := range catalog {
		if ep.Category == cat {
			out = append(out, ep)
		}
	}
	return out
}

// testedCount counts catalog endpoints with recorded coverage.
func testedCount(cc *coverage.ChainCoverage, catalog []*endpoint.Endpoint) int {
	n := 0
	for _, ep := range catalog {
		if ec := cc.Endpoints[ep.Name]; ec != nil && ec.Tested {
			n++
		}
	}
	return n
}

func runtimeStatus(ec *coverage.EndpointCoverage) string {
	t := ec.Totals()
	if t.Matched > 0 && !t.HasIssues() {
		return "PASS"
	}
	return "FAIL"
}

func resourceNoun(ep *endpoint.Endpoint) string {
	if ep.Category == endpoint.CategoryPallet {
		return "pallets"
	}
	return "resources"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
