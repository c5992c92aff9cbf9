package forecast

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRiskLevel  = 40
	defaultRiskReason = "Insufficient data; using default risk."

	riskBaseline = 20

	hotDayThresholdC     = 34.0
	veryHotDayThresholdC = 38.0

	riskReasonSeparator = " • "

	// 4 irrigation events of 120 mm each under conventional practice.
	baselineEvents     = 4
	baselineEventMm    = 120
	BaselineIrrigation = baselineEvents * baselineEventMm

	litersPerMmHectare = 10000.0
	litersPerMmAcre    = 4046.86
)

var weekRangePattern = regexp.MustCompile(`(?i)^\s*week\s*(\d+)\s*[-–]\s*(\d+)\s*$`)

// ComputeRisk scores short-term crop stress from the weekly weather, the soil
// drainage and the crop's growth stage. now is the evaluation time used for
// days-after-sowing.
func ComputeRisk(weekly []WeatherSample, soil *SoilProfile, crop string, sowingDate *time.Time, now time.Time) RiskAssessment {
	if len(weekly) == 0 {
		return RiskAssessment{Level: defaultRiskLevel, Reason: defaultRiskReason}
	}

	var (
		hotDays     int
		veryHotDays int
		totalRain   float64
		humiditySum float64
		hasHumidity bool
	)
	for _, s := range weekly {
		if s.Temperature >= hotDayThresholdC {
			hotDays++
		}
		if s.Temperature >= veryHotDayThresholdC {
			veryHotDays++
		}
		totalRain += s.Rainfall
		if s.Humidity != nil {
			humiditySum += *s.Humidity
			hasHumidity = true
		}
	}
	// Samples without humidity count as 0 in the mean.
	avgHumidity := humiditySum / float64(len(weekly))

	drainage := DrainageUnset
	if soil != nil {
		drainage = soil.Drainage
	}

	risk := float64(riskBaseline)
	risk += 6*float64(hotDays) + 8*float64(veryHotDays)

	switch {
	case totalRain < 20:
		risk += 20
	case totalRain < 50:
		risk += 10
	}

	if strings.Contains(strings.ToLower(crop), "rice") && avgHumidity >= 80 {
		risk += 10
	}

	waterlogging := drainage == DrainagePoor && totalRain > 60
	if waterlogging {
		risk += 10
	}
	droughtStress := drainage == DrainageGood && totalRain < 20
	if droughtStress {
		risk += 5
	}

	if sowingDate != nil {
		das := daysAfterSowing(*sowingDate, now)
		if das >= 40 && das <= 70 {
			risk += 8
		}
	}

	level := int(math.Round(math.Max(0, math.Min(100, risk))))

	var reasons []string
	if veryHotDays > 0 {
		reasons = append(reasons, fmt.Sprintf("%d very hot day(s) ≥38°C", veryHotDays))
	}
	if hotDays > 0 {
		reasons = append(reasons, fmt.Sprintf("%d hot day(s) ≥34°C", hotDays))
	}
	reasons = append(reasons, "Total rain "+formatNumber(totalRain)+" mm")
	if hasHumidity {
		reasons = append(reasons, fmt.Sprintf("Avg humidity %d%%", int(math.Round(avgHumidity))))
	}
	if waterlogging {
		reasons = append(reasons, "Waterlogging risk on poorly drained soil")
	}
	if droughtStress {
		reasons = append(reasons, "Drought stress on fast-draining soil")
	}

	return RiskAssessment{Level: level, Reason: strings.Join(reasons, riskReasonSeparator)}
}

// ResolveScheduleDates replaces "Week N-M" labels with the calendar range they
// cover when a sowing date is known. The input slice is not modified. Labels that
// are not week ranges, and every label when sowingDate is nil, pass through.
func ResolveScheduleDates(schedule []IrrigationWeekEntry, sowingDate *time.Time, locale string) []IrrigationWeekEntry {
	out := make([]IrrigationWeekEntry, len(schedule))
	copy(out, schedule)
	if sowingDate == nil {
		return out
	}

	months := monthNames(locale)
	for i := range out {
		start, end, ok := parseWeekRange(out[i].Week)
		if !ok {
			continue
		}
		from := sowingDate.AddDate(0, 0, (start-1)*7)
		to := sowingDate.AddDate(0, 0, end*7-1)
		out[i].StartWeek = start
		out[i].EndWeek = end
		out[i].Week = months.format(from) + " – " + months.format(to)
	}
	return out
}

// SummarizeWaterUsage compares the plan to the conventional seasonal baseline.
// waterSavingsPct may be negative when the plan uses more than the baseline.
func SummarizeWaterUsage(schedule []IrrigationWeekEntry, waterSavingsPct float64) WaterUsage {
	var planned float64
	for _, e := range schedule {
		if e.Action != ActionIrrigate || e.Amount == nil {
			continue
		}
		if a := *e.Amount; !math.IsNaN(a) && !math.IsInf(a, 0) {
			planned += a
		}
	}

	if math.IsNaN(waterSavingsPct) || math.IsInf(waterSavingsPct, 0) {
		waterSavingsPct = 0
	}
	saved := roundHalfUp(waterSavingsPct / 100 * BaselineIrrigation)
	used := BaselineIrrigation - saved
	used = math.Max(0, math.Min(BaselineIrrigation, used))

	return WaterUsage{
		UsedMm:         int(used),
		BaselineMm:     BaselineIrrigation,
		PctOfBaseline:  int(roundHalfUp(used / BaselineIrrigation * 100)),
		PlannedTotalMm: planned,
	}
}

// PerUnitWaterVolume converts a water depth in millimetres to litres per hectare
// and per acre. Returns nil for zero, negative or non-finite depths.
func PerUnitWaterVolume(amountMm float64) *UnitVolume {
	if amountMm <= 0 || math.IsNaN(amountMm) || math.IsInf(amountMm, 0) {
		return nil
	}
	return &UnitVolume{
		LitersPerHectare: int64(roundHalfUp(amountMm * litersPerMmHectare)),
		LitersPerAcre:    int64(roundHalfUp(amountMm * litersPerMmAcre)),
	}
}

// AttachVolumes returns a copy of the schedule with per-area volumes set on
// entries that carry a positive amount.
func AttachVolumes(schedule []IrrigationWeekEntry) []IrrigationWeekEntry {
	out := make([]IrrigationWeekEntry, len(schedule))
	copy(out, schedule)
	for i := range out {
		out[i].Volume = nil
		if out[i].Amount != nil {
			out[i].Volume = PerUnitWaterVolume(*out[i].Amount)
		}
	}
	return out
}

func parseWeekRange(label string) (start, end int, ok bool) {
	m := weekRangePattern.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	if start < 1 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

func daysAfterSowing(sowing, now time.Time) int {
	das := int(math.Floor(now.Sub(sowing).Hours() / 24))
	if das < 0 {
		return 0
	}
	return das
}

// roundHalfUp rounds .5 towards positive infinity, matching how the dashboard
// displays these figures.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

type monthTable struct {
	short    [12]string
	dayFirst bool
}

func (m monthTable) format(t time.Time) string {
	month := m.short[t.Month()-1]
	if m.dayFirst {
		return fmt.Sprintf("%d %s", t.Day(), month)
	}
	return fmt.Sprintf("%s %d", month, t.Day())
}

var monthTables = map[string]monthTable{
	"en": {
		short: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	},
	"hi": {
		short:    [12]string{"जन॰", "फ़र॰", "मार्च", "अप्रैल", "मई", "जून", "जुल॰", "अग॰", "सित॰", "अक्तू॰", "नव॰", "दिस॰"},
		dayFirst: true,
	},
	"mr": {
		short:    [12]string{"जाने", "फेब्रु", "मार्च", "एप्रि", "मे", "जून", "जुलै", "ऑग", "सप्टें", "ऑक्टो", "नोव्हें", "डिसें"},
		dayFirst: true,
	},
}

// monthNames accepts "hi", "hi-IN", "mr_IN" and similar; unknown locales get English.
func monthNames(locale string) monthTable {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if t, ok := monthTables[lang]; ok {
		return t
	}
	return monthTables["en"]
}
