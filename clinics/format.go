package clinics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// FormatRecommendations renders the facility list sent to the user,
// with a Google Maps link per entry. An empty list gets the
// no-facilities fallback.
func FormatRecommendations(cat messages.Catalog, facilities []Facility, address string) string {
	if len(facilities) == 0 {
		return fmt.Sprintf(cat.NoClinicsFound, address)
	}
	var b strings.Builder
	fmt.Fprintf(&b, cat.ClinicListHeader, address)
	for i, f := range facilities {
		mapsLink := fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%f,%f", f.Lat, f.Lon)
		fmt.Fprintf(&b, "%d. **%s** (%s)\n   📍 %skm away\n   🗺️ [Open in Maps](%s)\n\n",
			i+1, f.Name, titleWord(f.Type), formatKm(f.DistanceKm), mapsLink)
	}
	b.WriteString(cat.ClinicListFooter)
	return b.String()
}

func formatKm(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
