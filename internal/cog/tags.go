package cog

import "strconv"

// TIFF tag IDs.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSoftware        = 305
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagExtraSamples    = 338
	tagSampleFormat    = 339
	tagJPEGTables      = 347
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGeoDoubleParams = 34736
	tagGeoASCIIParams  = 34737
	tagGDALNoData      = 42113
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// Compression schemes.
const (
	compNone          = 1
	compLZW           = 5
	compJPEG          = 7
	compDeflate       = 8
	compDeflateLegacy = 32946
)

// SampleFormat values.
const (
	sfUint  = 1
	sfInt   = 2
	sfFloat = 3
)

// Photometric interpretations.
const (
	photoMinIsBlack = 1
	photoRGB        = 2
	photoYCbCr      = 6
)

const predictorHorizontal = 2

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 1
	}
}

func compressionName(c uint16) string {
	switch c {
	case compNone:
		return "none"
	case compLZW:
		return "lzw"
	case compJPEG:
		return "jpeg"
	case compDeflate, compDeflateLegacy:
		return "deflate"
	default:
		return "unknown"
	}
}

func sampleFormatName(sf uint16, bits int) string {
	switch sf {
	case sfInt:
		return "int" + strconv.Itoa(bits)
	case sfFloat:
		return "float" + strconv.Itoa(bits)
	default:
		return "uint" + strconv.Itoa(bits)
	}
}
