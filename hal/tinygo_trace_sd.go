//go:build tinygo && baremetal

package hal

import (
	"machine"
	"os"

	"tinygo.org/x/drivers/sdcard"
	"tinygo.org/x/tinyfs/fatfs"
)

// SD wiring: SPI0 on GP18 (SCK) / GP19 (SDO) / GP16 (SDI), CS on GP17.

const sdTracePath = "/lark-trace.ltrc"

// initSDTraceStore mounts a FAT filesystem on the SD card. Returns nil
// when no card is present; removable media is never auto-formatted.
func initSDTraceStore() TraceStore {
	sd := sdcard.New(machine.SPI0, machine.GP18, machine.GP19, machine.GP16, machine.GP17)
	if err := sd.Configure(); err != nil {
		return nil
	}

	fat := fatfs.New(&sd).Configure(&fatfs.Config{SectorSize: fatfs.SectorSize})
	if err := fat.Mount(); err != nil {
		return nil
	}
	return &sdTraceStore{fat: fat}
}

type sdTraceStore struct {
	fat *fatfs.FATFS
}

func (s *sdTraceStore) Save(data []byte) (string, error) {
	f, err := s.fat.OpenFile(sdTracePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return "sd:" + sdTracePath, nil
}
