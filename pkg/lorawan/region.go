package lorawan

// Region describes the frequency range of a LoRaWAN regional parameter set
type Region struct {
	Name            string
	MinFrequency    uint32
	MaxFrequency    uint32
	DefaultChannels []uint32
}

// Contains reports whether hz lies inside the region's band
func (r Region) Contains(hz uint32) bool {
	return hz >= r.MinFrequency && hz <= r.MaxFrequency
}

// ChannelIndex returns the index of hz among the default channels, or -1
func (r Region) ChannelIndex(hz uint32) int {
	for i, f := range r.DefaultChannels {
		if f == hz {
			return i
		}
	}
	return -1
}

// AS923_2Region is the plan used by the UMS gateways (Indonesia)
var AS923_2Region = Region{
	Name:            "AS923-2",
	MinFrequency:    920000000,
	MaxFrequency:    923400000,
	DefaultChannels: []uint32{921400000, 921600000},
}

// EU868Region for EU 868MHz band
var EU868Region = Region{
	Name:            "EU868",
	MinFrequency:    863000000,
	MaxFrequency:    870000000,
	DefaultChannels: []uint32{868100000, 868300000, 868500000},
}

// US915Region for US 915MHz band
var US915Region = Region{
	Name:         "US915",
	MinFrequency: 902000000,
	MaxFrequency: 928000000,
}

// CN470Region for China 470-510MHz band
var CN470Region = Region{
	Name:         "CN470",
	MinFrequency: 470000000,
	MaxFrequency: 510000000,
}

// regions are matched in order; AS923-2 sits inside the US915 range and
// must be tried first.
var regions = []Region{AS923_2Region, EU868Region, US915Region, CN470Region}

// RegionForFrequency returns the first region whose band holds hz
func RegionForFrequency(hz uint32) (Region, bool) {
	for _, r := range regions {
		if r.Contains(hz) {
			return r, true
		}
	}
	return Region{}, false
}
