package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
)

// PageTitle returns the page name used for a location's documentation
// page. Renames of the location rename the page.
func PageTitle(loc inventory.Location) string {
	return loc.Name + " Overview"
}

// Page renders the markdown body for one location. Output depends only
// on the inputs, so identical inventory renders byte-identical pages
// apart from the generation timestamp.
func Page(loc inventory.Location, devices []inventory.Device, entities []inventory.Entity, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s - Area Overview\n\n", loc.Name)
	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "This page documents the devices and entities located in the **%s** area.\n\n", loc.Name)

	b.WriteString("## Statistics\n")
	fmt.Fprintf(&b, "- **Devices**: %d\n", len(devices))
	fmt.Fprintf(&b, "- **Entities**: %d\n\n", len(entities))

	b.WriteString("## Devices\n\n")
	b.WriteString("| Device | Manufacturer | Model | Status |\n")
	b.WriteString("|--------|-------------|-------|--------|\n")
	for _, d := range devices {
		fmt.Fprintf(&b, "| %s | %s | %s | Active |\n",
			orUnknown(d.Name), orUnknown(d.Manufacturer), orUnknown(d.Model))
	}

	b.WriteString("\n## Entities\n\n")
	b.WriteString("| Entity ID | Friendly Name | Device Class | Unit |\n")
	b.WriteString("|-----------|--------------|--------------|------|\n")
	for _, e := range entities {
		friendly := e.FriendlyName
		if friendly == "" {
			friendly = orUnknown(e.ID)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			orUnknown(e.ID), friendly, orDash(e.DeviceClass), orDash(e.Unit))
	}

	fmt.Fprintf(&b, "\n## Last Updated\nGenerated on: %s\n\n", generatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("---\n*This documentation is automatically generated by Gray Logic Scribe*\n")

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
