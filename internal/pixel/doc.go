// Package pixel defines the decoded frame format and the raw buffer layouts
// drivers may declare.
//
// An [Image] stores one 0xAARRGGBB value per pixel and implements Go's
// [image.Image], so decoded frames can be encoded or drawn with the standard
// image packages.
package pixel
