package importer

import (
	"fmt"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// ResolveSampler maps source sampler parameters onto engine sampler
// settings. Any value outside the recognized enumerations is a fatal
// configuration error.
func ResolveSampler(p vrm.SamplerParams) (runtime.SamplerSettings, error) {
	s := runtime.SamplerSettings{}

	switch p.Filter {
	case vrm.FilterNearest, vrm.FilterNearestMipmapNearest, vrm.FilterNearestMipmapLinear:
		s.Filter = runtime.FilterPoint
	case vrm.FilterUndefined, vrm.FilterLinear, vrm.FilterLinearMipmapNearest:
		s.Filter = runtime.FilterBilinear
	case vrm.FilterLinearMipmapLinear:
		s.Filter = runtime.FilterTrilinear
	default:
		return s, fmt.Errorf("texture filter %d: %w", p.Filter, ErrNotImplemented)
	}

	for _, entry := range p.Wraps {
		mode, err := resolveWrap(entry.Mode)
		if err != nil {
			return s, err
		}
		switch entry.Axis {
		case vrm.WrapAxisAll:
			s.WrapU, s.WrapV, s.WrapW = mode, mode, mode
		case vrm.WrapAxisU:
			s.WrapU = mode
		case vrm.WrapAxisV:
			s.WrapV = mode
		case vrm.WrapAxisW:
			s.WrapW = mode
		default:
			return s, fmt.Errorf("texture wrap axis %d: %w", entry.Axis, ErrNotImplemented)
		}
	}

	return s, nil
}

func resolveWrap(m vrm.WrapMode) (runtime.Wrap, error) {
	switch m {
	case vrm.WrapRepeat:
		return runtime.WrapModeRepeat, nil
	case vrm.WrapClampToEdge:
		return runtime.WrapModeClamp, nil
	case vrm.WrapMirroredRepeat:
		return runtime.WrapModeMirror, nil
	default:
		return 0, fmt.Errorf("texture wrap mode %d: %w", m, ErrNotImplemented)
	}
}
