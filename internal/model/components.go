package model

import (
	"log/slog"
	"time"

	"github.com/roach88/pastas/internal/stressmodel"
)

// AddStressModel adds a contributor. A contributor whose name is already
// taken is refused with a DUPLICATE_NAME notice unless replace is set, in
// which case it takes the old one's position. Adding resets every
// parameter to its initial value.
func (m *Model) AddStressModel(c stressmodel.Contributor, replace bool) error {
	if err := m.guard("AddStressModel"); err != nil {
		return err
	}
	if c == nil {
		return configError("stress model is nil")
	}
	i := m.indexOf(c.Name())
	if i >= 0 && !replace {
		m.notify(slog.LevelError, NoticeDuplicateName,
			"a stress model with this name already exists; pass replace to overwrite it",
			slog.String("name", c.Name()))
		return nil
	}

	prevContributors := m.Contributors()
	prevFreq := m.settings.Freq
	rollback := func() {
		m.contributors = prevContributors
		m.settings.Freq = prevFreq
	}

	if i >= 0 {
		m.contributors[i] = c
	} else {
		m.contributors = append(m.contributors, c)
	}
	m.resolveFrequency()
	offset, err := ResolveTimeOffset(m.settings.Freq, m.contributors)
	if err != nil {
		rollback()
		return err
	}
	if err := c.UpdateStress(m.settings.Freq, time.Time{}, time.Time{}); err != nil {
		rollback()
		return configError("%v", err)
	}
	if err := m.rebuild(false); err != nil {
		rollback()
		return err
	}
	m.settings.TimeOffset = offset
	m.touch()
	return nil
}

// RemoveStressModel removes a contributor by name. Parameters of the other
// components keep their calibrated values.
func (m *Model) RemoveStressModel(name string) error {
	if err := m.guard("RemoveStressModel"); err != nil {
		return err
	}
	i := m.indexOf(name)
	if i < 0 {
		return invalidState(name, "no stress model with this name")
	}
	prev := m.Contributors()
	m.contributors = append(m.contributors[:i:i], m.contributors[i+1:]...)
	m.resolveFrequency()
	if offset, err := ResolveTimeOffset(m.settings.Freq, m.contributors); err == nil {
		m.settings.TimeOffset = offset
	}
	if err := m.rebuild(true); err != nil {
		m.contributors = prev
		return err
	}
	m.touch()
	return nil
}

// AddConstant sets the constant, replacing any existing one.
func (m *Model) AddConstant(c *stressmodel.Constant) error {
	if err := m.guard("AddConstant"); err != nil {
		return err
	}
	if c == nil {
		return configError("constant is nil")
	}
	prev := m.constant
	m.constant = c
	if err := m.rebuild(true); err != nil {
		m.constant = prev
		return err
	}
	m.touch()
	return nil
}

// RemoveConstant drops the constant. Removing an absent constant only
// emits a MISSING_COMPONENT notice.
func (m *Model) RemoveConstant() error {
	if err := m.guard("RemoveConstant"); err != nil {
		return err
	}
	if m.constant == nil {
		m.missing("constant")
		return nil
	}
	prev := m.constant
	m.constant = nil
	if err := m.rebuild(true); err != nil {
		m.constant = prev
		return err
	}
	m.touch()
	return nil
}

// AddTransform sets the transform, replacing any existing one.
func (m *Model) AddTransform(t Transform) error {
	if err := m.guard("AddTransform"); err != nil {
		return err
	}
	if t == nil {
		return configError("transform is nil")
	}
	prev := m.transform
	m.transform = t
	if err := m.rebuild(true); err != nil {
		m.transform = prev
		return err
	}
	m.touch()
	return nil
}

// RemoveTransform drops the transform. Removing an absent transform only
// emits a MISSING_COMPONENT notice.
func (m *Model) RemoveTransform() error {
	if err := m.guard("RemoveTransform"); err != nil {
		return err
	}
	if m.transform == nil {
		m.missing("transform")
		return nil
	}
	prev := m.transform
	m.transform = nil
	if err := m.rebuild(true); err != nil {
		m.transform = prev
		return err
	}
	m.touch()
	return nil
}

// AddNoiseModel sets the noise model and enables it for calibration.
func (m *Model) AddNoiseModel(n NoiseModel) error {
	if err := m.guard("AddNoiseModel"); err != nil {
		return err
	}
	if n == nil {
		return configError("noise model is nil")
	}
	prev, prevNoise := m.noise, m.settings.Noise
	m.noise = n
	m.settings.Noise = true
	if err := m.rebuild(true); err != nil {
		m.noise, m.settings.Noise = prev, prevNoise
		return err
	}
	m.touch()
	return nil
}

// RemoveNoiseModel drops the noise model and disables noise. Removing an
// absent noise model only emits a MISSING_COMPONENT notice.
func (m *Model) RemoveNoiseModel() error {
	if err := m.guard("RemoveNoiseModel"); err != nil {
		return err
	}
	if m.noise == nil {
		m.missing("noise model")
		return nil
	}
	prev, prevNoise := m.noise, m.settings.Noise
	m.noise = nil
	m.settings.Noise = false
	if err := m.rebuild(true); err != nil {
		m.noise, m.settings.Noise = prev, prevNoise
		return err
	}
	m.touch()
	return nil
}

// SetParameter overrides fields of a parameter row. The override survives
// later rebuilds of the registry.
func (m *Model) SetParameter(name string, o Override) error {
	if err := m.guard("SetParameter"); err != nil {
		return err
	}
	if _, ok := m.registry.Row(name); !ok {
		return invalidState("", "no parameter named %s", name)
	}
	prev, had := m.overrides[name]
	merged := prev
	if o.Initial != nil {
		merged.Initial = o.Initial
	}
	if o.PMin != nil {
		merged.PMin = o.PMin
	}
	if o.PMax != nil {
		merged.PMax = o.PMax
	}
	if o.Vary != nil {
		merged.Vary = o.Vary
	}
	m.overrides[name] = merged
	if err := m.rebuild(true); err != nil {
		if had {
			m.overrides[name] = prev
		} else {
			delete(m.overrides, name)
		}
		return err
	}
	m.touch()
	return nil
}

// componentTables lists the parameter tables in registry order.
func (m *Model) componentTables(includeNoise bool) []componentTable {
	var tables []componentTable
	for _, c := range m.contributors {
		tables = append(tables, componentTable{name: c.Name(), rows: c.Parameters()})
	}
	if m.constant != nil {
		tables = append(tables, componentTable{name: m.constant.Name(), rows: m.constant.Parameters()})
	}
	if m.transform != nil {
		tables = append(tables, componentTable{name: m.transform.Name(), rows: m.transform.Parameters()})
	}
	if includeNoise && m.noise != nil {
		tables = append(tables, componentTable{name: m.noise.Name(), rows: m.noise.Parameters()})
	}
	return tables
}

// rebuild replaces the registry from the active components. With preserve
// set, calibrated values are carried over by row name. Any open session is
// discarded.
func (m *Model) rebuild(preserve bool) error {
	var prev *Registry
	if preserve {
		prev = m.registry
	}
	reg, err := buildRegistry(m.componentTables(m.settings.Noise), prev, m.overrides)
	if err != nil {
		return err
	}
	m.registry = reg
	m.session = nil
	if m.state == StateInitialized {
		m.state = StateUninitialized
	}
	return nil
}

func (m *Model) missing(what string) {
	m.notify(slog.LevelWarn, NoticeMissingComponent,
		"model has no "+what+" to remove",
		slog.String("component", what))
}

func (m *Model) touch() {
	m.fileInfo.Modified = m.now().UTC()
}
