package engine

import "github.com/wnxd/microhook/layout"

// TArray is the host's dynamic array header.
type TArray struct {
	Data layout.Ptr
	Num  int32
	Max  int32
}

// Msg is the window message record filled by PeekMessage.
type Msg struct {
	Hwnd    layout.Ptr
	Message uint32
	WParam  layout.Ptr
	LParam  layout.Ptr
	Time    uint32
	X, Y    int32
}

// PresentParameters is the device presentation block passed to Reset.
type PresentParameters struct {
	BackBufferWidth    uint32
	BackBufferHeight   uint32
	BackBufferFormat   uint32
	BackBufferCount    uint32
	MultiSampleType    uint32
	MultiSampleQuality uint32
	SwapEffect         uint32
	DeviceWindow       layout.Ptr
}

// levelInfoName is the pointer slot of the level info block holding the
// destination name.
const levelInfoName = 7
