package forecast

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
)

// District is a supported forecast location.
type District struct {
	ID   string
	Name string
	Lon  float64
	Lat  float64
}

// Crop is a supported crop with its growing season.
type Crop struct {
	ID     string
	Name   string
	Season string
}

// Season is a supported cropping season.
type Season struct {
	ID    string
	Label string
}

// Option is a selectable value with a display label.
type Option struct {
	ID    string
	Label string
}

// Catalog lists everything a forecast request may refer to.
type Catalog struct {
	Districts []District
	Crops     []Crop
	Seasons   []Season
	SoilTypes []Option
	Drainage  []Option
	Scenarios []Option
	Languages []Option
}

var districts = []District{
	{ID: "mumbai", Name: "Mumbai, Maharashtra", Lon: 72.8777, Lat: 19.0760},
	{ID: "thane", Name: "Thane, Maharashtra", Lon: 72.9716, Lat: 19.2183},
	{ID: "pune", Name: "Pune, Maharashtra", Lon: 73.8567, Lat: 18.5204},
	{ID: "nashik", Name: "Nashik, Maharashtra", Lon: 73.7898, Lat: 19.9975},
	{ID: "aurangabad", Name: "Aurangabad, Maharashtra", Lon: 75.3433, Lat: 19.8762},
	{ID: "nagpur", Name: "Nagpur, Maharashtra", Lon: 79.0882, Lat: 21.1458},
	{ID: "kolhapur", Name: "Kolhapur, Maharashtra", Lon: 74.2433, Lat: 16.7040},
	{ID: "satara", Name: "Satara, Maharashtra", Lon: 74.0183, Lat: 17.6805},
	{ID: "solapur", Name: "Solapur, Maharashtra", Lon: 75.9064, Lat: 17.6599},
}

var crops = []Crop{
	{ID: "rice", Name: "Rice", Season: "Kharif"},
	{ID: "wheat", Name: "Wheat", Season: "Rabi"},
	{ID: "maize", Name: "Maize", Season: "Kharif"},
	{ID: "sugarcane", Name: "Sugarcane", Season: "Annual"},
	{ID: "cotton", Name: "Cotton", Season: "Kharif"},
	{ID: "soybean", Name: "Soybean", Season: "Kharif"},
}

var seasons = []Season{
	{ID: "kharif-2024", Label: "Kharif 2024 (Jun-Nov)"},
	{ID: "rabi-2024", Label: "Rabi 2024-25 (Nov-Apr)"},
}

// Scenarios.
const (
	ScenarioNormal  = "normal"
	ScenarioDrought = "drought"
	ScenarioWet     = "wet"
)

// DefaultCatalog returns the static catalog. The returned value is a fresh copy.
func DefaultCatalog() Catalog {
	return Catalog{
		Districts: append([]District(nil), districts...),
		Crops:     append([]Crop(nil), crops...),
		Seasons:   append([]Season(nil), seasons...),
		SoilTypes: []Option{
			{ID: "loamy", Label: "Loamy"},
			{ID: "sandy", Label: "Sandy"},
			{ID: "clay", Label: "Clay"},
			{ID: "silt", Label: "Silt"},
		},
		Drainage: []Option{
			{ID: string(DrainageGood), Label: "Good"},
			{ID: string(DrainageModerate), Label: "Moderate"},
			{ID: string(DrainagePoor), Label: "Poor"},
		},
		Scenarios: []Option{
			{ID: ScenarioNormal, Label: "Normal"},
			{ID: ScenarioDrought, Label: "Drought"},
			{ID: ScenarioWet, Label: "Wet"},
		},
		Languages: []Option{
			{ID: "en", Label: "English"},
			{ID: "hi", Label: "हिन्दी"},
			{ID: "mr", Label: "मराठी"},
		},
	}
}

// LookupDistrict finds a district by id or by name. Names match with or without
// the state suffix, ignoring case.
func LookupDistrict(key string) (District, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, d := range districts {
		name := strings.ToLower(d.Name)
		short, _, _ := strings.Cut(name, ",")
		if k == d.ID || k == name || k == short {
			return d, true
		}
	}
	return District{}, false
}

// LookupCrop finds a crop by id or name, ignoring case.
func LookupCrop(key string) (Crop, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, c := range crops {
		if k == c.ID || k == strings.ToLower(c.Name) {
			return c, true
		}
	}
	return Crop{}, false
}

// LookupSeason finds a season by id.
func LookupSeason(key string) (Season, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, s := range seasons {
		if k == s.ID {
			return s, true
		}
	}
	return Season{}, false
}

// NormalizeScenario maps unknown or empty scenarios to normal.
func NormalizeScenario(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ScenarioDrought:
		return ScenarioDrought
	case ScenarioWet:
		return ScenarioWet
	default:
		return ScenarioNormal
	}
}

// historicalYield is the district-average yield (t/ha) the prediction is compared to.
var historicalYield = map[string]float64{
	"rice":      3.9,
	"wheat":     3.4,
	"maize":     4.8,
	"sugarcane": 65.0,
	"cotton":    1.6,
	"soybean":   1.1,
}

// HistoricalYield returns the baseline yield for a crop.
func HistoricalYield(crop string) (float64, bool) {
	v, ok := historicalYield[strings.ToLower(strings.TrimSpace(crop))]
	return v, ok
}

type scheduleRow struct {
	week   string
	action Action
	amount string
	reason string
}

// referenceProfile is the reference outlook for a crop under a scenario. It backs
// the parts of a result whose upstream source is unavailable.
type referenceProfile struct {
	current      CurrentWeather
	temps        tempRange
	trendRain    float64
	trendSpread  float64
	yield        float64
	confidence   int
	vsHistorical int
	features     []FeatureImpact
	explanation  string
	schedule     []scheduleRow
	waterSavings int
}

type tempRange struct {
	avg, max, min float64
}

var referenceProfiles = map[string]map[string]referenceProfile{
	ScenarioNormal: {
		"rice": {
			current:     CurrentWeather{Temperature: 32, Humidity: 78, Conditions: "Partly Cloudy"},
			temps:       tempRange{avg: 29, max: 33, min: 24},
			trendRain:   8,
			trendSpread: 6,
			yield:       4.2, confidence: 87, vsHistorical: 8,
			features: []FeatureImpact{
				{Name: "Rainfall", Impact: 42}, {Name: "Temperature", Impact: 25},
				{Name: "NDVI", Impact: 18}, {Name: "Soil", Impact: 15},
			},
			explanation: "Expected rainfall is favorable for rice cultivation. Optimal temperature range maintained throughout growing season.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionSkip, "", "Natural rainfall sufficient"},
				{"Week 3-4", ActionIrrigate, "50", "Supplement for tillering stage"},
				{"Week 5-6", ActionIrrigate, "75", "Critical flowering period"},
				{"Week 7-8", ActionSkip, "", "Expected monsoon rains"},
			},
			waterSavings: 23,
		},
		"wheat": {
			current:     CurrentWeather{Temperature: 24, Humidity: 65, Conditions: "Clear"},
			temps:       tempRange{avg: 21, max: 26, min: 14},
			trendRain:   5,
			trendSpread: 4,
			yield:       3.8, confidence: 92, vsHistorical: 12,
			features: []FeatureImpact{
				{Name: "Temperature", Impact: 38}, {Name: "Rainfall", Impact: 28},
				{Name: "Soil", Impact: 22}, {Name: "NDVI", Impact: 12},
			},
			explanation: "Cool winter temperatures are optimal for wheat. Limited irrigation needed due to winter rains.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionIrrigate, "40", "Crown root irrigation"},
				{"Week 3-4", ActionSkip, "", "Winter rainfall expected"},
				{"Week 5-6", ActionIrrigate, "45", "Pre-flowering support"},
				{"Week 7-8", ActionSkip, "", "Natural moisture sufficient"},
			},
			waterSavings: 31,
		},
		"maize": {
			current:     CurrentWeather{Temperature: 29, Humidity: 72, Conditions: "Overcast"},
			temps:       tempRange{avg: 27, max: 31, min: 22},
			trendRain:   12,
			trendSpread: 8,
			yield:       5.1, confidence: 84, vsHistorical: 6,
			features: []FeatureImpact{
				{Name: "Rainfall", Impact: 35}, {Name: "Temperature", Impact: 30},
				{Name: "Soil", Impact: 20}, {Name: "NDVI", Impact: 15},
			},
			explanation: "Maize requires consistent moisture. Current weather patterns support healthy growth.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionIrrigate, "35", "Germination support"},
				{"Week 3-4", ActionSkip, "", "Monsoon onset expected"},
				{"Week 5-6", ActionIrrigate, "60", "Tasseling stage"},
				{"Week 7-8", ActionSkip, "", "Natural precipitation"},
			},
			waterSavings: 18,
		},
		"sugarcane": {
			current:     CurrentWeather{Temperature: 35, Humidity: 83, Conditions: "Humid"},
			temps:       tempRange{avg: 31, max: 36, min: 25},
			trendRain:   15,
			trendSpread: 10,
			yield:       68, confidence: 79, vsHistorical: 4,
			features: []FeatureImpact{
				{Name: "Rainfall", Impact: 45}, {Name: "Temperature", Impact: 30},
				{Name: "Soil", Impact: 15}, {Name: "NDVI", Impact: 10},
			},
			explanation: "Sugarcane requires heavy irrigation in dry periods. High water demand crop.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionIrrigate, "80", "Establishment phase"},
				{"Week 3-4", ActionIrrigate, "90", "Rapid growth phase"},
				{"Week 5-6", ActionSkip, "", "Monsoon rains"},
				{"Week 7-8", ActionIrrigate, "70", "Maturation support"},
			},
			waterSavings: 12,
		},
	},
	ScenarioDrought: {
		"rice": {
			current:     CurrentWeather{Temperature: 38, Humidity: 45, Conditions: "Hot & Dry"},
			temps:       tempRange{avg: 35, max: 40, min: 28},
			trendRain:   2,
			trendSpread: 3,
			yield:       2.8, confidence: 68, vsHistorical: -28,
			features: []FeatureImpact{
				{Name: "Rainfall", Impact: 55}, {Name: "Temperature", Impact: 35},
				{Name: "Soil", Impact: 8}, {Name: "NDVI", Impact: 2},
			},
			explanation: "Critical drought conditions. Immediate irrigation required to prevent crop failure.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionIrrigate, "90", "Emergency irrigation needed"},
				{"Week 3-4", ActionIrrigate, "85", "Prevent wilting"},
				{"Week 5-6", ActionIrrigate, "80", "Sustain plant health"},
				{"Week 7-8", ActionIrrigate, "75", "Recovery irrigation"},
			},
			waterSavings: -45,
		},
		"maize": {
			current:     CurrentWeather{Temperature: 41, Humidity: 32, Conditions: "Extreme Heat"},
			temps:       tempRange{avg: 37, max: 42, min: 29},
			trendRain:   1,
			trendSpread: 2,
			yield:       2.1, confidence: 58, vsHistorical: -45,
			features: []FeatureImpact{
				{Name: "Rainfall", Impact: 65}, {Name: "Temperature", Impact: 25},
				{Name: "Soil", Impact: 7}, {Name: "NDVI", Impact: 3},
			},
			explanation: "Extreme heat stress conditions. Consider drought-resistant varieties for next season.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionIrrigate, "100", "Critical survival irrigation"},
				{"Week 3-4", ActionIrrigate, "95", "Heat stress mitigation"},
				{"Week 5-6", ActionIrrigate, "90", "Maintain plant viability"},
				{"Week 7-8", ActionIrrigate, "85", "Recovery support"},
			},
			waterSavings: -60,
		},
	},
	ScenarioWet: {
		"rice": {
			current:     CurrentWeather{Temperature: 26, Humidity: 95, Conditions: "Heavy Rain"},
			temps:       tempRange{avg: 25, max: 28, min: 22},
			trendRain:   25,
			trendSpread: 15,
			yield:       4.8, confidence: 76, vsHistorical: 15,
			features: []FeatureImpact{
				{Name: "Rainfall", Impact: 30}, {Name: "Disease", Impact: 35},
				{Name: "Temperature", Impact: 20}, {Name: "NDVI", Impact: 15},
			},
			explanation: "Abundant rainfall benefits rice but requires drainage management to prevent diseases.",
			schedule: []scheduleRow{
				{"Week 1-2", ActionSkip, "", "Excessive natural rainfall"},
				{"Week 3-4", ActionSkip, "", "Soil saturated"},
				{"Week 5-6", ActionSkip, "", "Continued heavy rains"},
				{"Week 7-8", ActionSkip, "", "Natural water sufficient"},
			},
			waterSavings: 85,
		},
	},
}

// referenceFor resolves the profile for a scenario and crop. Unknown scenarios
// use normal; crops without a profile in the scenario use that scenario's rice.
func referenceFor(scenario, crop string) referenceProfile {
	table, ok := referenceProfiles[NormalizeScenario(scenario)]
	if !ok {
		table = referenceProfiles[ScenarioNormal]
	}
	if p, ok := table[strings.ToLower(strings.TrimSpace(crop))]; ok {
		return p
	}
	return table["rice"]
}

func (p referenceProfile) irrigationSchedule() []IrrigationWeekEntry {
	out := make([]IrrigationWeekEntry, 0, len(p.schedule))
	for _, row := range p.schedule {
		out = append(out, NewIrrigationWeekEntry(row.week, string(row.action), row.amount, row.reason))
	}
	return out
}

func (p referenceProfile) featureImportance() []FeatureImpact {
	return append([]FeatureImpact(nil), p.features...)
}

const trendDays = 30

// WeatherTrend returns the 30-day rainfall/temperature trend for a district, crop
// and scenario. The series is deterministic for a given key.
func WeatherTrend(district, crop, scenario string) []TrendPoint {
	scenario = NormalizeScenario(scenario)
	profile := referenceFor(scenario, crop)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", strings.ToLower(district), strings.ToLower(crop), scenario)
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>17|1))

	points := make([]TrendPoint, trendDays)
	for i := range points {
		rain := profile.trendRain + rng.Float64()*profile.trendSpread - profile.trendSpread/2
		points[i] = TrendPoint{
			Day:         fmt.Sprintf("Day %d", i+1),
			Rainfall:    round1(math.Max(0, rain)),
			Temperature: round1(28 + rng.Float64()*8),
		}
	}
	return points
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
