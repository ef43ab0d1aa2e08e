package domain

// ConfigReader интерфейс для чтения конфигурации
type ConfigReader interface {
	ReadConfig(path string) (*Config, error)
}

// CountsReader интерфейс для чтения наблюдаемого спектра
type CountsReader interface {
	ReadCounts(filename string) ([]int, error)
}

// SurfaceWriter интерфейс для записи результатов сканирования
type SurfaceWriter interface {
	WriteSurface(filename string, surface *CoverageSurface) error
	WriteContours(filename string, sets []ContourSet) error
}
