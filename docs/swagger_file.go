package docs

// SwaggerFile ruta del swagger.json generado por swag init, relativa al directorio de trabajo.
const SwaggerFile = "./docs/swagger.json"
