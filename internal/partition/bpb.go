package partition

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/codec"
)

// Decode reads p.FirstBlock as a BIOS Parameter Block and fills in the rest
// of p's geometry fields, classifying it Fat16, Fat32, or Unknown (spec.md
// §4.5, component C5). It's grounded on the teacher's
// drivers/fat/common.go NewFATBootSectorFromStream, adapted to the exact
// field offsets and classification thresholds from original_source/mfat.c's
// _mfat_decode_bpb.
func Decode(dev *blockio.Device, p *Partition) errors.DriverError {
	var buf [blockio.BlockSize]byte
	if err := dev.ReadBlock(p.FirstBlock, buf[:]); err != nil {
		return err
	}

	if buf[510] != 0x55 || buf[511] != 0xAA {
		p.Kind = Unknown
		return nil
	}
	validJump := buf[0] == 0xE9 || (buf[0] == 0xEB && buf[2] == 0x90)
	if !validJump {
		p.Kind = Unknown
		return nil
	}

	bytesPerSector := codec.Word(buf[11:13])
	if bytesPerSector != blockio.BlockSize {
		p.Kind = Unknown
		return nil
	}

	blocksPerCluster := uint32(buf[13])
	numReservedBlocks := uint32(codec.Word(buf[14:16]))
	numFATs := uint32(buf[16])
	numRootEntries := uint32(codec.Word(buf[17:19]))

	numBlocks := uint32(codec.Word(buf[19:21]))
	if numBlocks == 0 {
		numBlocks = codec.DWord(buf[32:36])
	}

	blocksPerFAT := uint32(codec.Word(buf[22:24]))
	if blocksPerFAT == 0 {
		blocksPerFAT = codec.DWord(buf[36:40])
	}

	blocksInRootDir := (numRootEntries*32 + blockio.BlockSize - 1) / blockio.BlockSize

	firstDataBlock := p.FirstBlock + blockio.LogicalBlock(numReservedBlocks+numFATs*blocksPerFAT+blocksInRootDir)

	reserved := numReservedBlocks + numFATs*blocksPerFAT + blocksInRootDir
	if numBlocks < reserved || blocksPerCluster == 0 {
		p.Kind = Unknown
		return nil
	}
	dataSectors := numBlocks - reserved
	countOfClusters := dataSectors / blocksPerCluster

	p.BlocksPerCluster = blocksPerCluster
	p.NumReservedBlocks = numReservedBlocks
	p.NumFATs = numFATs
	p.BlocksPerFAT = blocksPerFAT
	p.BlocksInRootDir = blocksInRootDir
	p.NumBlocks = numBlocks
	p.FirstDataBlock = firstDataBlock

	switch {
	case countOfClusters < 4085:
		p.Kind = Unknown
	case countOfClusters < 65525:
		p.Kind = Fat16
		p.RootDirBlock = firstDataBlock - blockio.LogicalBlock(blocksInRootDir)
		p.NumClusters = countOfClusters + 1
	default:
		p.Kind = Fat32
		p.RootDirCluster = codec.DWord(buf[44:48])
		p.NumClusters = countOfClusters + 1
	}

	return nil
}
