package uarch

// Register tables below are the MSR numbers and control values from the
// reference implementation's setup_perf_counters, transcribed verbatim.
// They are Intel-documented uncore PMON programming constants, not
// anything derived at runtime, hence the raw literal style.

func xeonProfile(arch Microarch) (*Profile, error) {
	switch arch {
	case SandyBridge:
		return &Profile{
			Class: ClassXeon, Microarch: arch, MaxSlices: 8,
			Xeon: &XeonRegisters{
				Ctr0:      []uint32{0xd16, 0xd36, 0xd56, 0xd76, 0xd96, 0xdb6, 0xdd6, 0xdf6},
				BoxFilter: []uint32{0xd14, 0xd34, 0xd54, 0xd74, 0xd94, 0xdb4, 0xdd4, 0xdf4},
				Ctl0:      []uint32{0xd10, 0xd30, 0xd50, 0xd70, 0xd90, 0xdb0, 0xdd0, 0xdf0},
				BoxCtl:    []uint32{0xd04, 0xd24, 0xd44, 0xd64, 0xd84, 0xda4, 0xdc4, 0xde4},

				BoxFreeze:      0x10100,
				BoxReset:       0x10103,
				EnableCounting: 0x400000,
				SelectEvent:    0x401134,
				Filter:         0x7c0000,
				BoxUnfreeze:    0x10000,
			},
		}, nil
	case IvyBridge:
		return &Profile{
			Class: ClassXeon, Microarch: arch, MaxSlices: 15,
			Xeon: &XeonRegisters{
				Ctr0: []uint32{
					0xd16, 0xd36, 0xd56, 0xd76, 0xd96, 0xdb6, 0xdd6, 0xdf6,
					0xe16, 0xe36, 0xe56, 0xe76, 0xe96, 0xeb6, 0xed6,
				},
				BoxFilter: []uint32{
					0xd14, 0xd34, 0xd54, 0xd74, 0xd94, 0xdb4, 0xdd4, 0xdf4,
					0xe14, 0xe34, 0xe54, 0xe74, 0xe94, 0xeb4, 0xed4,
				},
				Ctl0: []uint32{
					0xd10, 0xd30, 0xd50, 0xd70, 0xd90, 0xdb0, 0xdd0, 0xdf0,
					0xe10, 0xe30, 0xe50, 0xe70, 0xe90, 0xeb0, 0xed0,
				},
				BoxCtl: []uint32{
					0xd04, 0xd24, 0xd44, 0xd64, 0xd84, 0xda4, 0xdc4, 0xde4,
					0xe04, 0xe24, 0xe44, 0xe64, 0xe84, 0xea4, 0xec4,
				},

				BoxFreeze:      0x30100,
				BoxReset:       0x30103,
				EnableCounting: 0x400000,
				SelectEvent:    0x401134,
				Filter:         0x7e0010,
				BoxUnfreeze:    0x30000,
			},
		}, nil
	case Haswell:
		return &Profile{
			Class: ClassXeon, Microarch: arch, MaxSlices: 18,
			Xeon: &XeonRegisters{
				Ctr0: []uint32{
					0xe08, 0xe18, 0xe28, 0xe38, 0xe48, 0xe58, 0xe68, 0xe78, 0xe88,
					0xe98, 0xea8, 0xeb8, 0xec8, 0xed8, 0xee8, 0xef8, 0xf08, 0xf18,
				},
				BoxFilter: []uint32{
					0xe05, 0xe15, 0xe25, 0xe35, 0xe45, 0xe55, 0xe65, 0xe75, 0xe85,
					0xe95, 0xea5, 0xeb5, 0xec5, 0xed5, 0xee5, 0xef5, 0xf05, 0xf15,
				},
				Ctl0: []uint32{
					0xe01, 0xe11, 0xe21, 0xe31, 0xe41, 0xe51, 0xe61, 0xe71, 0xe81,
					0xe91, 0xea1, 0xeb1, 0xec1, 0xed1, 0xee1, 0xef1, 0xf01, 0xf11,
				},
				BoxCtl: []uint32{
					0xe00, 0xe10, 0xe20, 0xe30, 0xe40, 0xe50, 0xe60, 0xe70, 0xe80,
					0xe90, 0xea0, 0xeb0, 0xec0, 0xed0, 0xee0, 0xef0, 0xf00, 0xf10,
				},

				BoxFreeze:      0x30100,
				BoxReset:       0x30103,
				EnableCounting: 0x400000,
				SelectEvent:    0x401134,
				Filter:         0x7e0020,
				BoxUnfreeze:    0x30000,
			},
		}, nil
	case Broadwell:
		return &Profile{
			Class: ClassXeon, Microarch: arch, MaxSlices: 24,
			Xeon: &XeonRegisters{
				Ctr0: []uint32{
					0xe08, 0xe18, 0xe28, 0xe38, 0xe48, 0xe58, 0xe68, 0xe78,
					0xe88, 0xe98, 0xea8, 0xeb8, 0xec8, 0xed8, 0xee8, 0xef8,
					0xf08, 0xf18, 0xf28, 0xf38, 0xf48, 0xf58, 0xf68, 0xf78,
				},
				BoxFilter: []uint32{
					0xe05, 0xe15, 0xe25, 0xe35, 0xe45, 0xe55, 0xe65, 0xe75,
					0xe85, 0xe95, 0xea5, 0xeb5, 0xec5, 0xed5, 0xee5, 0xef5,
					0xf05, 0xf15, 0xf25, 0xf35, 0xf45, 0xf55, 0xf65, 0xf75,
				},
				Ctl0: []uint32{
					0xe01, 0xe11, 0xe21, 0xe31, 0xe41, 0xe51, 0xe61, 0xe71,
					0xe81, 0xe91, 0xea1, 0xeb1, 0xec1, 0xed1, 0xee1, 0xef1,
					0xf01, 0xf11, 0xf21, 0xf31, 0xf41, 0xf51, 0xf61, 0xf71,
				},
				BoxCtl: []uint32{
					0xe00, 0xe10, 0xe20, 0xe30, 0xe40, 0xe50, 0xe60, 0xe70,
					0xe80, 0xe90, 0xea0, 0xeb0, 0xec0, 0xed0, 0xee0, 0xef0,
					0xf00, 0xf10, 0xf20, 0xf30, 0xf40, 0xf50, 0xf60, 0xf70,
				},

				BoxFreeze:      0x30100,
				BoxReset:       0x30103,
				EnableCounting: 0x400000,
				SelectEvent:    0x401134,
				Filter:         0xfe0020,
				BoxUnfreeze:    0x30000,
			},
		}, nil
	case SkylakeSP:
		return nil, &ErrUnsupportedModel{}
	default:
		return nil, &ErrUnsupportedModel{}
	}
}

func coreProfile(arch Microarch, nbCores int) (*Profile, int) {
	if arch == Skylake || arch == KabyLake {
		maxSlices := 7
		if nbCores == 8 {
			// 8-core client Coffee Lake parts are missing one CBox; only
			// the 7 known boxes are probed. No 8th slice count is measured
			// or computed, so no probe result ever names an 8th slice.
			nbCores = 7
		}

		return &Profile{
			Class: ClassCore, Microarch: arch, MaxSlices: maxSlices,
			Core: &CoreRegisters{
				GlobalCtrl:    0xe01,
				PerfEvtSel0:   []uint32{0x700, 0x710, 0x720, 0x730, 0x740, 0x750, 0x760},
				PerCtr0:       []uint32{0x706, 0x716, 0x726, 0x736, 0x746, 0x756, 0x766},
				EnableCtrs:    0x20000000,
				DisableCtrs:   0x0,
				SelectEvtCore: 0x408f34,
				ResetCtrs:     0x0,
			},
		}, nbCores
	}

	return &Profile{
		Class: ClassCore, Microarch: arch, MaxSlices: 4,
		Core: &CoreRegisters{
			GlobalCtrl:    0x391,
			PerfEvtSel0:   []uint32{0x700, 0x710, 0x720, 0x730},
			PerCtr0:       []uint32{0x706, 0x716, 0x726, 0x736},
			EnableCtrs:    0x2000000f,
			DisableCtrs:   0x0,
			SelectEvtCore: 0x408f34,
			ResetCtrs:     0x0,
		},
	}, nbCores
}
