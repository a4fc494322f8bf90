package process

type Module interface {
	Name() string
	// Region returns the image base and its mapped size.
	Region() (uint64, uint64)
	BaseAddr() uint64
	FindExport(name string) (uint64, error)
}

type Modules interface {
	MainModule() (Module, error)
	FindModule(name string) (Module, error)
	FindModuleByAddr(addr uint64) (Module, error)
}
