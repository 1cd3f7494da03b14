package fire

// Params are the runtime-tunable fire constants. They can be changed
// while the generator runs; Clamp pins every value into its documented
// range, so bad console input degrades the look instead of faulting.
//
// Defaults are one authoritative set; device variants override them
// through the YAML config.
type Params struct {
	// BaseCooling is the heat shed per cell per second.
	BaseCooling float32 `yaml:"base_cooling" json:"base_cooling"`
	// CoolingVariance widens per-cell cooling to [0, base+variance).
	CoolingVariance float32 `yaml:"cooling_variance" json:"cooling_variance"`
	// CoolingAudioBias is added to cooling scaled by energy. Negative
	// values make loud passages burn taller.
	CoolingAudioBias float32 `yaml:"cooling_audio_bias" json:"cooling_audio_bias"`

	// SparkChance is the per-cell baseline ignition probability per tick.
	SparkChance float32 `yaml:"spark_chance" json:"spark_chance"`
	// SparkHeatMin/Max bound the heat of a single spark.
	SparkHeatMin float32 `yaml:"spark_heat_min" json:"spark_heat_min"`
	SparkHeatMax float32 `yaml:"spark_heat_max" json:"spark_heat_max"`
	// AudioSparkBoost scales how much audio energy raises spark chance.
	AudioSparkBoost float32 `yaml:"audio_spark_boost" json:"audio_spark_boost"`
	// AudioHeatBoostMax is the extra spark heat at full energy.
	AudioHeatBoostMax float32 `yaml:"audio_heat_boost_max" json:"audio_heat_boost_max"`
	// TransientHeatMax couples pulse transients into effective energy.
	TransientHeatMax float32 `yaml:"transient_heat_max" json:"transient_heat_max"`
	// BottomRows limits spark spawning to the lowest rows (or, for
	// linear fields, the first BottomRows cells at the origin end).
	BottomRows int `yaml:"bottom_rows" json:"bottom_rows"`
	// BurstSparks is the spark count of one phase-locked beat burst.
	BurstSparks int `yaml:"burst_sparks" json:"burst_sparks"`
}

// Documented parameter ranges.
const (
	coolingMax    = 1024
	sparkHeatCap  = 255
	bottomRowsMax = 32
	burstMax      = 64
)

// DefaultParams returns the authoritative tuning set.
func DefaultParams() Params {
	return Params{
		BaseCooling:       85,
		CoolingVariance:   40,
		CoolingAudioBias:  -20,
		SparkChance:       0.32,
		SparkHeatMin:      40,
		SparkHeatMax:      200,
		AudioSparkBoost:   0.3,
		AudioHeatBoostMax: 60,
		TransientHeatMax:  100,
		BottomRows:        1,
		BurstSparks:       6,
	}
}

// Clamp pins every field into its documented range. Out-of-order spark
// bounds are swapped rather than rejected.
func (p *Params) Clamp() {
	p.BaseCooling = clampf(p.BaseCooling, 0, coolingMax)
	p.CoolingVariance = clampf(p.CoolingVariance, 0, coolingMax)
	p.CoolingAudioBias = clampf(p.CoolingAudioBias, -coolingMax, coolingMax)
	p.SparkChance = clampf(p.SparkChance, 0, 1)
	p.SparkHeatMin = clampf(p.SparkHeatMin, 0, sparkHeatCap)
	p.SparkHeatMax = clampf(p.SparkHeatMax, 0, sparkHeatCap)
	if p.SparkHeatMax < p.SparkHeatMin {
		p.SparkHeatMin, p.SparkHeatMax = p.SparkHeatMax, p.SparkHeatMin
	}
	p.AudioSparkBoost = clampf(p.AudioSparkBoost, 0, 4)
	p.AudioHeatBoostMax = clampf(p.AudioHeatBoostMax, 0, sparkHeatCap)
	p.TransientHeatMax = clampf(p.TransientHeatMax, 0, sparkHeatCap)
	p.BottomRows = clampi(p.BottomRows, 1, bottomRowsMax)
	p.BurstSparks = clampi(p.BurstSparks, 1, burstMax)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
