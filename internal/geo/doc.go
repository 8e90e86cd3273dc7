// Package geo reprojects WGS84 longitude/latitude into the map systems
// used by the ground tools: EPSG:4326 (identity), EPSG:3031 and EPSG:3413
// (WGS84 polar stereographic) and EPSG:3857 (Web Mercator).
package geo
