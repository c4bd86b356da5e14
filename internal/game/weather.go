package game

// WeatherSystem advances weather with every move and derives its effects.
type WeatherSystem struct {
	cfg WeatherConfig
	rng Rand
}

// NewWeatherSystem creates a weather system from the progression constants.
func NewWeatherSystem(cfg WeatherConfig, rng Rand) *WeatherSystem {
	return &WeatherSystem{cfg: cfg, rng: rng}
}

// Advance raises the weather value by one move's increment. The type locks
// to fog or rain the first time the value reaches the lock threshold.
func (ws *WeatherSystem) Advance(w *Weather) {
	w.Value += ws.cfg.IncrementPerMove
	if ws.cfg.Max > 0 && w.Value > ws.cfg.Max {
		w.Value = ws.cfg.Max
	}
	if w.Type == WeatherUnset && w.Value >= ws.cfg.TypeLockThreshold {
		if ws.rng.Intn(2) == 0 {
			w.Type = WeatherFog
		} else {
			w.Type = WeatherRain
		}
	}
}

// State derives the display/effect state.
func (ws *WeatherSystem) State(w Weather) WeatherState {
	switch {
	case w.Type == WeatherUnset:
		return WeatherClear
	case ws.cfg.StormThreshold > 0 && w.Value >= ws.cfg.StormThreshold:
		return WeatherStorm
	case w.Type == WeatherFog && w.Value >= ws.cfg.SevereThreshold:
		return WeatherDenseFog
	case w.Type == WeatherFog:
		return WeatherFoggy
	case w.Value >= ws.cfg.SevereThreshold:
		return WeatherHeavyRain
	default:
		return WeatherRainy
	}
}

// Effect returns the gameplay impact of the current weather.
func (ws *WeatherSystem) Effect(w Weather) WeatherEffect {
	e, ok := ws.cfg.Effects[ws.State(w)]
	if !ok {
		return WeatherEffect{SightMultiplier: 1}
	}
	if e.SightMultiplier <= 0 {
		e.SightMultiplier = 1
	}
	return e
}
