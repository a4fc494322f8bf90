package engine

import "github.com/wnxd/microhook/scan"

// Signatures locates everything Initialize hooks or captures. Patterns
// without a module are searched in the main module.
type Signatures struct {
	Names   scan.Pattern // deref at +2
	Objects scan.Pattern // deref at +2

	DeviceModule  string
	Device        scan.Pattern // deref at +2 yields the device vtable
	EndSceneIndex int
	ResetIndex    int

	LoaderModule   string
	LoaderExport   string
	MessageModule  string
	MessageExport  string
	ProcessEvent   scan.Pattern
	LevelLoad      scan.Pattern
	PreDeathAnchor scan.Pattern
	PreDeath       scan.Pattern // searched after PreDeathAnchor
	PostDeath      scan.Pattern // searched after PreDeath
	ActorTick      scan.Pattern
	BonesTick      scan.Pattern // rel32 call to the bone update
	Projection     scan.Pattern
	Tick           scan.Pattern
}

func mask(bytes, m string) scan.Pattern {
	p, err := scan.FromMask([]byte(bytes), m)
	if err != nil {
		panic(err)
	}
	return p
}

func DefaultSignatures() Signatures {
	return Signatures{
		Names: mask("\x8B\x0D\x00\x00\x00\x00\x8B\x84\x24\x00\x00\x00\x00\x8B\x04\x81",
			"xx????xxx????xxx"),
		Objects: mask("\x8B\x15\x00\x00\x00\x00\x8B\x0C\xB2\x8D\x44\x24\x30",
			"xx????xxxxxxx"),

		DeviceModule: "d3d9.dll",
		Device: mask("\xC7\x06\x00\x00\x00\x00\x89\x86\x00\x00\x00\x00\x89\x86",
			"xx????xx????xx"),
		EndSceneIndex: 42,
		ResetIndex:    16,

		LoaderModule:  "kernel32.dll",
		LoaderExport:  "LoadLibraryA",
		MessageModule: "user32.dll",
		MessageExport: "PeekMessageW",

		ProcessEvent: mask("\x56\x8B\xF1\x8B\x0D\x00\x00\x00\x00\x85\xC9\x74\x09",
			"xxxxx????xxxx"),
		LevelLoad: mask("\x6A\xFF\x68\x00\x00\x00\x00\x64\xA1\x00\x00\x00\x00\x50\x81\xEC"+
			"\x00\x00\x00\x00\x53\x55\x56\x57\xA1\x00\x00\x00\x00\x33\xC4\x50"+
			"\x8D\x84\x24\x00\x00\x00\x00\x64\xA3\x00\x00\x00\x00\x8B\xE9\x89"+
			"\x6C\x24\x00\x00\xFF\x89",
			"???????xxxxxxxxx?xxxxxxxx????xxxxxx?xxxxxxxxxxxxxx??xx"),
		PreDeathAnchor: mask("\x8D\x4C\x24\x10\xE8\x00\x00\x00\x00\x8B\x4C\x24\x14\x85\xC9\x7C"+
			"\x1E\x3B\xCF\x0F\x8D\x00\x00\x00\x00\x8B\x04\x8E\x8B\x40\x08\x25"+
			"\x00\x00\x00\x00\x33\xD2\x0B\xC2\x75\xD6\xE9\x00\x00\x00\x00",
			"xxxxx????xxxxxxxxxxxx????xxxxxxx????xxxxxxx????"),
		PreDeath: mask("\xC7\x05\x00\x00\x00\x00\x00\x00\x00\x00\xB8\x00\x00\x00\x00\xC3"+
			"\xB8\x00\x00\x00\x00\xC3",
			"xx????????x????xx????x"),
		PostDeath: mask("\x8B\x0D\x00\x00\x00\x00\xC7\x05\x00\x00\x00\x00\x00\x00\x00\x00"+
			"\x8B\x01\x8B\x90\x00\x00\x00\x00\xFF\xD2\xB8\x00\x00\x00\x00\xC3"+
			"\x8B\xC1\xC7\x00\x00\x00\x00\x00\xC3",
			"??????xx????????xxxx????xxx????xxxxx????x"),
		ActorTick: mask("\x55\x8B\xEC\x83\xE4\xF0\x83\xEC\x38\x56\x57\x8B\x81",
			"xxxxxxxxxxxxx"),
		BonesTick: mask("\xE8\x00\x00\x00\x00\x8B\x74\x24\x14\x8D\x7B\x68",
			"x????xxxxxxx"),
		Projection: mask("\x83\xEC\x3C\xD9\x44\x24\x44",
			"xxxxxxx"),
		Tick: mask("\x83\xEC\x48\x53\x55\x56\x57\x8B\xF9\xE8\x00\x00\x00\x00\x8B\x0D"+
			"\x00\x00\x00\x00\x8B\x15\x00\x00\x00\x00\x8B\xE8",
			"xxxxxxxxxx????xx????xx????xx"),
	}
}
