package pathresolver

import "os"

type statFunc func(name string) (os.FileInfo, error)

func osStat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
